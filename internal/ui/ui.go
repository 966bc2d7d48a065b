package ui

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/roster/internal/formatter"
	"github.com/desertthunder/roster/internal/paging"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ListView ViewState = iota
	DetailView
)

const (
	DefaultScrollDebounce  = 150 * time.Millisecond
	DefaultScrollThreshold = 5
)

// Options tunes the scroll trigger and record rendering.
type Options struct {
	ScrollDebounce  time.Duration // Quiet period after cursor movement before checking the position
	ScrollThreshold int           // Rows from the bottom that count as near the bottom
	Graded          bool          // Adds percentage and grade fields to result records
}

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	view      ViewState
	loader    *paging.Loader
	updates   <-chan paging.Update
	columns   []string
	list      list.Model
	spinner   spinner.Model
	help      help.Model
	keys      keyMap
	width     int
	height    int
	status    paging.Update
	notice    string
	err       error
	debounce  time.Duration
	threshold int
	scrollTag int
	loading   bool
	graded    bool
}

// NewModel creates a list view over loader. updates must be the channel the loader was built
// with; it may be nil.
func NewModel(ctx context.Context, loader *paging.Loader, updates <-chan paging.Update, opts Options) *Model {
	if opts.ScrollDebounce <= 0 {
		opts.ScrollDebounce = DefaultScrollDebounce
	}
	if opts.ScrollThreshold <= 0 {
		opts.ScrollThreshold = DefaultScrollThreshold
	}

	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = listTitle(loader.Collection())
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()

	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	s.Style = styles.warn

	return &Model{
		ctx:       ctx,
		view:      ListView,
		loader:    loader,
		updates:   updates,
		list:      l,
		spinner:   s,
		help:      help.New(),
		keys:      newKeyMap(),
		debounce:  opts.ScrollDebounce,
		threshold: opts.ScrollThreshold,
		graded:    opts.Graded,
	}
}

func listTitle(collection string) string {
	if collection == "" {
		return "Records"
	}
	return strings.ToUpper(collection[:1]) + collection[1:]
}

// Init mounts the loader and starts listening for its updates.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.mount(), m.waitForUpdate(), m.spinner.Tick)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-6)
		m.help.Width = msg.Width
		return m, m.scheduleScrollCheck()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.view {
		case ListView:
			return m.handleListKeys(msg)
		case DetailView:
			return m.handleDetailKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgMounted:
		if err := msg.err(); err != nil {
			m.err = err
			return m, nil
		}
		return m, m.refresh()

	case MsgLoaderUpdate:
		u := msg.update()
		m.status = u
		switch {
		case u.Notify():
			m.notice = u.Message
		case u.Phase == paging.PhaseMerged, u.Phase == paging.PhaseDrained:
			m.notice = ""
		}
		cmds := []tea.Cmd{m.refresh(), m.waitForUpdate()}
		if u.Phase == paging.PhaseMerged && u.State == paging.Idle {
			cmds = append(cmds, m.scheduleScrollCheck())
		}
		return m, tea.Batch(cmds...)

	case MsgScrollCheck:
		if msg.tag() != m.scrollTag || m.view != ListView || m.loading {
			return m, nil
		}
		if m.loader.State() != paging.Idle || !m.loader.HasMore() || !m.nearBottom() {
			return m, nil
		}
		m.loading = true
		return m, m.loadMore()

	case MsgPageLoaded:
		m.loading = false
		return m, m.refresh()

	case MsgUnmounted:
		return m, m.mount()
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress r to retry, q to quit", m.err))
	}

	switch m.view {
	case ListView:
		return m.renderList()
	case DetailView:
		return m.renderDetail()
	default:
		return ""
	}
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Sequence(m.unmount(), tea.Quit)
	case key.Matches(msg, m.keys.reload):
		m.err = nil
		m.notice = ""
		return m, m.remount()
	case key.Matches(msg, m.keys.more):
		if m.loading {
			return m, nil
		}
		m.loading = true
		return m, m.loadMore()
	case key.Matches(msg, m.keys.enter):
		if _, ok := m.list.SelectedItem().(recordItem); ok {
			m.view = DetailView
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, tea.Batch(cmd, m.scheduleScrollCheck())
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Sequence(m.unmount(), tea.Quit)
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.enter):
		m.view = ListView
	}
	return m, nil
}

// refresh copies the loader's list into the list widget, keeping the cursor where it was.
func (m *Model) refresh() tea.Cmd {
	records := m.loader.Records()
	if m.graded {
		records = formatter.WithGrades(records)
	}
	m.columns = formatter.Columns(m.loader.Collection(), records)
	return m.list.SetItems(newItems(records, m.columns))
}

// nearBottom reports whether the visible page of the list is within the threshold of its end.
func (m *Model) nearBottom() bool {
	n := len(m.list.Items())
	start, _ := m.list.Paginator.GetSliceBounds(n)
	return paging.NearBottom(start, m.list.Paginator.PerPage, n, m.threshold)
}

// scheduleScrollCheck restarts the debounce window. Only the check for the newest tag acts.
func (m *Model) scheduleScrollCheck() tea.Cmd {
	m.scrollTag++
	tag := m.scrollTag
	return tea.Tick(m.debounce, func(time.Time) tea.Msg {
		return scrollCheckMsg(tag)
	})
}

func (m *Model) mount() tea.Cmd {
	return func() tea.Msg {
		if err := m.loader.Mount(m.ctx); err != nil {
			return mountedMsg(err)
		}
		m.loader.Start()
		return mountedMsg(nil)
	}
}

func (m *Model) unmount() tea.Cmd {
	return func() tea.Msg {
		m.loader.Unmount()
		return nil
	}
}

func (m *Model) remount() tea.Cmd {
	return func() tea.Msg {
		m.loader.Unmount()
		return unmountedMsg()
	}
}

func (m *Model) loadMore() tea.Cmd {
	return func() tea.Msg {
		return pageLoadedMsg(m.loader.LoadMore(m.ctx))
	}
}

func (m *Model) waitForUpdate() tea.Cmd {
	if m.updates == nil {
		return nil
	}
	return func() tea.Msg {
		u, ok := <-m.updates
		if !ok {
			return nil
		}
		return loaderUpdateMsg(u)
	}
}

func (m *Model) renderList() string {
	var b strings.Builder
	b.WriteString(m.list.View())
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(styles.err.Render(m.notice))
	}
	b.WriteString("\n\n")
	b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	return b.String()
}

func (m *Model) renderStatus() string {
	state := m.loader.State()
	count := fmt.Sprintf("%d %s", m.loader.Len(), m.loader.Collection())

	switch {
	case state.Fetching():
		return fmt.Sprintf("%s %s", m.spinner.View(), styles.warn.Render(m.status.Message))
	case state == paging.Halted:
		return styles.warn.Render(fmt.Sprintf("%s • stopped, press m to retry", count))
	case m.loader.HasMore():
		return styles.help.Render(fmt.Sprintf("%s • more available", count))
	default:
		return styles.ok.Render(fmt.Sprintf("%s • all loaded", count))
	}
}

func (m *Model) renderDetail() string {
	item, ok := m.list.SelectedItem().(recordItem)
	if !ok {
		return ""
	}

	var b strings.Builder
	b.WriteString(styles.title.Render(item.Title()))
	b.WriteString("\n")
	for _, k := range slices.Sorted(maps.Keys(item.record)) {
		b.WriteString(styles.field.Render(k))
		value := formatter.Cell(item.record, k)
		if k == "grade" {
			value = styles.grade(value).Render(value)
		}
		b.WriteString(value)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit}))
	return b.String()
}
