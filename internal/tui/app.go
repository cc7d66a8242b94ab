package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"snowboard-doctor/internal/chat"
	"snowboard-doctor/internal/identity"
	"snowboard-doctor/internal/utils"
)

const appTitle = "Snowboard Doctor"

const emptyConversation = "Start a conversation! Ask me anything..."

type view int

const (
	viewLoading view = iota
	viewSignIn
	viewGuestEntry
	viewAuthenticating
	viewChat
)

func (v view) String() string {
	switch v {
	case viewLoading:
		return "Loading"
	case viewSignIn:
		return "Sign in"
	case viewGuestEntry:
		return "Quick sign in"
	case viewAuthenticating:
		return "Signing in"
	case viewChat:
		return "Chat"
	default:
		return "Unknown"
	}
}

const (
	guestFieldEmail = iota
	guestFieldName
	guestFieldContinue
	guestFieldBack
	guestFieldCount
)

var (
	headerStyle     = lipgloss.NewStyle().Bold(true)
	subtitleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	footerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("160"))
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	logStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	userLabelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	botLabelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	buttonStyle     = lipgloss.NewStyle().Padding(0, 2).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	activeButton    = buttonStyle.BorderForeground(lipgloss.Color("39")).Bold(true)
	inputBackground = lipgloss.AdaptiveColor{Light: "252", Dark: "236"}
	msgBoxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Background(inputBackground)
	userBubbleStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("214")).Padding(0, 1)
	botBubbleStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("39")).Padding(0, 1)
	toastStyle      = lipgloss.NewStyle().Border(lipgloss.ThickBorder()).BorderForeground(lipgloss.Color("160")).Padding(0, 1)
	panelStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 2)
)

// Options wires the program to an identity resolver and a way to open a
// conversation once a session exists.
type Options struct {
	Context       context.Context
	Resolver      *identity.Resolver
	NewChannel    func(identity.Session) *chat.Channel
	Logger        *utils.Logger
	Federated     bool
	ToastDuration time.Duration
	AltScreen     bool
}

type model struct {
	ctx        context.Context
	resolver   *identity.Resolver
	newChannel func(identity.Session) *chat.Channel
	channel    *chat.Channel
	logger     *utils.Logger
	federated  bool

	width  int
	height int
	view   view

	signInList    list.Model
	emailInput    textinput.Model
	nameInput     textinput.Model
	guestFocus    int
	msgInput      textarea.Model
	chatViewport  viewport.Model
	logViewport   viewport.Model
	spinner       spinner.Model
	help          help.Model
	keys          keyMap
	showLogs      bool
	altScreen     bool
	logs          []logEntry
	logLines      []string
	toast         *toast
	toastSeq      int
	toastDuration time.Duration

	errMsg          string
	submittingGuest bool
	signingOut      bool
}

type toast struct {
	id     int
	notice chat.Notice
}

type resolvedMsg struct{ state identity.State }

// authEventMsg carries one provider event; ok is false once the
// subscription has been closed.
type authEventMsg struct {
	event identity.AuthEvent
	ok    bool
}

type signInStartedMsg struct{ err error }

type guestResultMsg struct {
	session identity.Session
	err     error
}

type signedOutMsg struct{ err error }

type replyMsg struct {
	channel *chat.Channel
	result  chat.Result
}

type toastExpiredMsg struct{ id int }

func Run(opts Options) error {
	m := newModel(opts)
	progOpts := []tea.ProgramOption{tea.WithMouseCellMotion()}
	if opts.AltScreen {
		progOpts = append(progOpts, tea.WithAltScreen())
	}
	if opts.Context != nil {
		progOpts = append(progOpts, tea.WithContext(opts.Context))
	}
	p := tea.NewProgram(m, progOpts...)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && opts.Context != nil && opts.Context.Err() != nil {
		return nil
	}
	return err
}

func newModel(opts Options) model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	toastDuration := opts.ToastDuration
	if toastDuration <= 0 {
		toastDuration = 4 * time.Second
	}

	emailInput := textinput.New()
	emailInput.Placeholder = "you@example.com"
	emailInput.Prompt = "Email: "
	emailInput.CharLimit = 254
	emailInput.Width = 40
	nameInput := textinput.New()
	nameInput.Placeholder = "optional"
	nameInput.Prompt = "Name:  "
	nameInput.CharLimit = 100
	nameInput.Width = 40

	msgInput := textarea.New()
	msgInput.Placeholder = "Describe your snowboard problem..."
	msgInput.Prompt = ""
	msgInput.ShowLineNumbers = false
	msgInput.SetHeight(3)
	msgInput.KeyMap.InsertNewline = defaultKeyMap.Newline
	msgInput.FocusedStyle.Base = msgInput.FocusedStyle.Base.Background(inputBackground)
	msgInput.BlurredStyle.Base = msgInput.BlurredStyle.Base.Background(inputBackground)
	msgInput.FocusedStyle.CursorLine = msgInput.FocusedStyle.CursorLine.Background(inputBackground)
	msgInput.BlurredStyle.CursorLine = msgInput.BlurredStyle.CursorLine.Background(inputBackground)

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = dimStyle

	signInList := newSignInList(opts.Federated)
	signInList.SetSize(60, 8)

	return model{
		ctx:           ctx,
		resolver:      opts.Resolver,
		newChannel:    opts.NewChannel,
		logger:        logger,
		federated:     opts.Federated,
		view:          viewLoading,
		signInList:    signInList,
		emailInput:    emailInput,
		nameInput:     nameInput,
		msgInput:      msgInput,
		chatViewport:  viewport.New(0, 0),
		logViewport:   viewport.New(0, 6),
		spinner:       spin,
		help:          help.New(),
		keys:          defaultKeyMap,
		altScreen:     opts.AltScreen,
		logs:          []logEntry{},
		logLines:      []string{},
		toastDuration: toastDuration,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		resolveCmd(m.ctx, m.resolver),
		listenAuth(m.resolver.Events()),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.syncChatViewport()
		return m, nil
	case resolvedMsg:
		m.addLog("info", "identity resolved: "+msg.state.String())
		return m, m.applyState(msg.state)
	case authEventMsg:
		if !msg.ok {
			return m, nil
		}
		ev := msg.event
		state := m.resolver.HandleEvent(ev)
		switch ev.Kind {
		case identity.EventRedirect:
			m.addLog("info", "waiting for sign-in at "+ev.URL)
		case identity.EventSignInFailed:
			m.errMsg = "Sign-in failed: " + errText(ev.Err)
			m.addLog("error", m.errMsg)
		default:
			m.addLog("info", "auth event: "+ev.Kind.String())
		}
		return m, tea.Batch(m.applyState(state), listenAuth(m.resolver.Events()))
	case signInStartedMsg:
		if msg.err != nil {
			m.errMsg = "Could not start sign-in: " + msg.err.Error()
			m.addLog("error", m.errMsg)
		}
		return m, m.applyState(m.resolver.State())
	case guestResultMsg:
		m.submittingGuest = false
		if msg.err != nil {
			m.errMsg = guestErrorText(msg.err)
			return m, nil
		}
		m.addLog("info", "guest session "+msg.session.Token.Short())
		return m, m.applyState(m.resolver.State())
	case signedOutMsg:
		m.signingOut = false
		if msg.err != nil {
			m.errMsg = "Sign-out failed: " + msg.err.Error()
			m.addLog("error", m.errMsg)
			return m, nil
		}
		m.addLog("info", "signed out")
		return m, m.applyState(m.resolver.State())
	case replyMsg:
		if m.channel == nil || msg.channel != m.channel {
			m.addLog("debug", "dropped reply for a closed session")
			return m, nil
		}
		out := m.channel.Complete(msg.result)
		if msg.result.Err != nil {
			m.addLog("error", "send failed: "+msg.result.Err.Error())
		} else {
			m.addLog("info", "reply received")
		}
		m.syncChatViewport()
		m.chatViewport.GotoBottom()
		if out.Notice != nil {
			return m, m.showToast(*out.Notice)
		}
		return m, nil
	case toastExpiredMsg:
		if m.toast != nil && m.toast.id == msg.id {
			m.toast = nil
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.busy() {
			if m.view == viewChat {
				m.syncChatViewport()
			}
			return m, cmd
		}
		return m, nil
	case tea.MouseMsg:
		if msg.Type == tea.MouseWheelUp || msg.Type == tea.MouseWheelDown {
			if m.view == viewChat {
				var cmd tea.Cmd
				m.chatViewport, cmd = m.chatViewport.Update(msg)
				return m, cmd
			}
			if m.showLogs {
				var cmd tea.Cmd
				m.logViewport, cmd = m.logViewport.Update(msg)
				return m, cmd
			}
		}
		return m, nil
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		if key.Matches(msg, m.keys.Logs) {
			m.showLogs = !m.showLogs
			m.resize()
			m.syncChatViewport()
			return m, nil
		}
		if key.Matches(msg, m.keys.Screen) {
			m.altScreen = !m.altScreen
			if m.altScreen {
				return m, tea.EnterAltScreen
			}
			return m, tea.ExitAltScreen
		}
		switch m.view {
		case viewSignIn:
			return m.updateSignIn(msg)
		case viewGuestEntry:
			return m.updateGuestEntry(msg)
		case viewAuthenticating:
			return m.updateAuthenticating(msg)
		case viewChat:
			return m.updateChat(msg)
		}
	}
	return m, nil
}

func (m model) updateSignIn(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !key.Matches(msg, m.keys.Select) {
		var cmd tea.Cmd
		m.signInList, cmd = m.signInList.Update(msg)
		return m, cmd
	}
	method, ok := selectedMethod(m.signInList)
	if !ok {
		return m, nil
	}
	m.errMsg = ""
	switch method {
	case methodGoogle:
		if !m.federated {
			m.errMsg = "Google sign-in is not configured. Use Quick Sign In instead."
			return m, nil
		}
		m.view = viewAuthenticating
		return m, tea.Batch(m.spinner.Tick, startSignInCmd(m.ctx, m.resolver))
	case methodGuest:
		if err := m.resolver.BeginGuestEntry(); err != nil {
			m.addLog("error", err.Error())
			return m, nil
		}
		return m, m.applyState(m.resolver.State())
	}
	return m, nil
}

func (m model) updateGuestEntry(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.submittingGuest {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Back):
		return m.leaveGuestEntry()
	case key.Matches(msg, m.keys.Next):
		return m, m.focusGuestField((m.guestFocus + 1) % guestFieldCount)
	case key.Matches(msg, m.keys.Prev):
		return m, m.focusGuestField((m.guestFocus + guestFieldCount - 1) % guestFieldCount)
	case key.Matches(msg, m.keys.Select):
		if m.guestFocus == guestFieldBack {
			return m.leaveGuestEntry()
		}
		if m.guestFocus == guestFieldEmail {
			return m, m.focusGuestField(guestFieldName)
		}
		m.errMsg = ""
		m.submittingGuest = true
		return m, submitGuestCmd(m.ctx, m.resolver, m.emailInput.Value(), m.nameInput.Value())
	}

	var cmd tea.Cmd
	switch m.guestFocus {
	case guestFieldEmail:
		m.emailInput, cmd = m.emailInput.Update(msg)
	case guestFieldName:
		m.nameInput, cmd = m.nameInput.Update(msg)
	}
	return m, cmd
}

func (m model) leaveGuestEntry() (tea.Model, tea.Cmd) {
	if err := m.resolver.CancelGuestEntry(); err != nil {
		m.addLog("error", err.Error())
	}
	m.errMsg = ""
	return m, m.applyState(m.resolver.State())
}

func (m model) updateAuthenticating(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !key.Matches(msg, m.keys.Back) {
		return m, nil
	}
	if err := m.resolver.CancelFederated(); err != nil {
		m.addLog("warn", err.Error())
	} else {
		m.addLog("info", "sign-in cancelled")
	}
	return m, m.applyState(m.resolver.State())
}

func (m model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.SignOut):
		if m.signingOut {
			return m, nil
		}
		m.signingOut = true
		m.errMsg = ""
		return m, signOutCmd(m.ctx, m.resolver)
	case key.Matches(msg, m.keys.ScrollUp, m.keys.ScrollDown):
		var cmd tea.Cmd
		m.chatViewport, cmd = m.chatViewport.Update(msg)
		return m, cmd
	case key.Matches(msg, m.keys.Send):
		return m, m.startSend()
	}

	if m.channel != nil && m.channel.Pending() {
		return m, nil
	}
	var cmd tea.Cmd
	m.msgInput, cmd = m.msgInput.Update(msg)
	return m, cmd
}

// startSend hands the input to the channel. A refused submission leaves the
// input untouched.
func (m *model) startSend() tea.Cmd {
	if m.channel == nil {
		return nil
	}
	req, ok := m.channel.Begin(m.msgInput.Value())
	if !ok {
		return nil
	}
	m.msgInput.Reset()
	m.errMsg = ""
	m.addLog("info", fmt.Sprintf("sending message (%d chars)", len(req.ChatInput)))
	m.syncChatViewport()
	m.chatViewport.GotoBottom()
	return tea.Batch(m.spinner.Tick, sendCmd(m.ctx, m.channel, req))
}

// applyState moves the UI to the view for the resolver's state.
func (m *model) applyState(state identity.State) tea.Cmd {
	switch state {
	case identity.StateLoading:
		m.view = viewLoading
		return m.spinner.Tick
	case identity.StateUnauthenticated:
		m.view = viewSignIn
		m.channel = nil
		m.msgInput.Reset()
		m.msgInput.Blur()
		m.emailInput.Blur()
		m.nameInput.Blur()
		return nil
	case identity.StateAuthenticating:
		m.view = viewAuthenticating
		return m.spinner.Tick
	case identity.StateGuestEntry:
		m.view = viewGuestEntry
		m.emailInput.Reset()
		m.nameInput.Reset()
		return m.focusGuestField(guestFieldEmail)
	case identity.StateAuthenticated:
		m.view = viewChat
		m.errMsg = ""
		m.emailInput.Blur()
		m.nameInput.Blur()
		if m.channel == nil {
			session, ok := m.resolver.Session()
			if ok && m.newChannel != nil {
				m.channel = m.newChannel(session)
			}
		}
		m.resize()
		m.syncChatViewport()
		return m.msgInput.Focus()
	}
	return nil
}

func (m *model) focusGuestField(field int) tea.Cmd {
	m.guestFocus = field
	m.emailInput.Blur()
	m.nameInput.Blur()
	switch field {
	case guestFieldEmail:
		return m.emailInput.Focus()
	case guestFieldName:
		return m.nameInput.Focus()
	}
	return nil
}

func (m *model) showToast(n chat.Notice) tea.Cmd {
	m.toastSeq++
	id := m.toastSeq
	m.toast = &toast{id: id, notice: n}
	return tea.Tick(m.toastDuration, func(time.Time) tea.Msg {
		return toastExpiredMsg{id: id}
	})
}

func (m model) busy() bool {
	switch m.view {
	case viewLoading, viewAuthenticating:
		return true
	case viewGuestEntry:
		return m.submittingGuest
	case viewChat:
		return m.signingOut || (m.channel != nil && m.channel.Pending())
	}
	return false
}

func (m model) View() string {
	header := headerStyle.Render(appTitle)
	errLine := ""
	if m.errMsg != "" {
		errLine = errStyle.Render(m.errMsg)
	}

	var body string
	var keys viewHelp
	switch m.view {
	case viewLoading:
		body = m.viewLoading()
	case viewSignIn:
		body = m.viewSignIn()
		keys = m.keys.signInHelp()
	case viewGuestEntry:
		body = m.viewGuestEntry()
		keys = m.keys.guestHelp()
	case viewAuthenticating:
		body = m.viewAuthenticating()
		keys = m.keys.waitingHelp()
	case viewChat:
		body = m.viewChat()
		keys = m.keys.chatHelp()
	}
	if m.showLogs {
		body = strings.Join([]string{body, "", m.renderLogPanel(m.logViewport.Height)}, "\n")
	}

	lines := []string{header, errLine, "", body, ""}
	if m.view == viewChat && m.channel != nil {
		lines = append(lines, footerStyle.Render(fmt.Sprintf("Session ID: %s...", m.channel.Session().Token.Short())))
	}
	if keys != nil {
		lines = append(lines, footerStyle.Render(m.help.ShortHelpView(keys.ShortHelp())))
	}
	base := framePanel(strings.Join(lines, "\n"), m.width, m.height)
	if m.toast != nil {
		return pinTopRight(base, m.renderToast(), m.width)
	}
	return base
}

func (m model) viewLoading() string {
	return m.spinner.View() + " Loading..."
}

func (m model) viewSignIn() string {
	return strings.Join([]string{
		subtitleStyle.Render("Sign in to get help with your board."),
		"",
		m.signInList.View(),
	}, "\n")
}

func (m model) viewGuestEntry() string {
	continueBtn := buttonStyle.Render("Continue")
	if m.guestFocus == guestFieldContinue {
		continueBtn = activeButton.Render("Continue")
	}
	backBtn := buttonStyle.Render("Back")
	if m.guestFocus == guestFieldBack {
		backBtn = activeButton.Render("Back")
	}
	status := ""
	if m.submittingGuest {
		status = dimStyle.Render(m.spinner.View() + " Starting session...")
	}
	return strings.Join([]string{
		headerStyle.Render("Quick Sign In"),
		subtitleStyle.Render("Your email keeps this session's conversation together."),
		"",
		m.emailInput.View(),
		m.nameInput.View(),
		"",
		lipgloss.JoinHorizontal(lipgloss.Top, continueBtn, " ", backBtn),
		status,
	}, "\n")
}

func (m model) viewAuthenticating() string {
	lines := []string{m.spinner.View() + " Waiting for Google sign-in to finish in your browser..."}
	if url := m.resolver.AuthorizeURL(); url != "" {
		width, _ := m.bodySize()
		lines = append(lines,
			"",
			dimStyle.Render("If no browser opened, visit:"),
			ansi.Hardwrap(url, width, false),
		)
	}
	lines = append(lines, "", dimStyle.Render("esc to cancel"))
	return strings.Join(lines, "\n")
}

func (m model) viewChat() string {
	width, _ := m.bodySize()
	who := "Signed in"
	if m.channel != nil {
		ident := m.channel.Session().Identity
		who = fmt.Sprintf("Signed in as %s", ident.Name())
		if ident.Kind == identity.KindGuest {
			who += " (guest)"
		}
	}
	if m.signingOut {
		who += " " + m.spinner.View() + " signing out..."
	}
	m.msgInput.SetWidth(width - 4)
	return strings.Join([]string{
		dimStyle.Render(who),
		m.chatViewport.View(),
		msgBoxStyle.Width(width - 2).Render(m.msgInput.View()),
	}, "\n")
}

func (m model) renderToast() string {
	n := m.toast.notice
	return toastStyle.Render(errStyle.Bold(true).Render(n.Title) + "\n" + n.Description)
}

// chatLines renders the conversation with bubbles aligned by author.
func (m model) chatLines(width int) []string {
	if m.channel == nil {
		return nil
	}
	state := m.channel.State()
	if len(state.Messages) == 0 && !state.Pending {
		return []string{dimStyle.Render(emptyConversation)}
	}

	bubbleWidth := width * 3 / 4
	if bubbleWidth < 20 {
		bubbleWidth = width
	}
	textWidth := bubbleWidth - 4
	if textWidth < 1 {
		textWidth = 1
	}

	lines := make([]string, 0, len(state.Messages)*4)
	for _, msg := range state.Messages {
		stamp := msg.CreatedAt.Local().Format("15:04")
		text := ansi.Wrap(msg.Content, textWidth, "")
		if msg.FromUser() {
			label := userLabelStyle.Render("You") + dimStyle.Render(" · "+stamp)
			bubble := userBubbleStyle.Render(text)
			lines = append(lines,
				lipgloss.PlaceHorizontal(width, lipgloss.Right, label),
				lipgloss.PlaceHorizontal(width, lipgloss.Right, bubble),
			)
		} else {
			label := botLabelStyle.Render(appTitle) + dimStyle.Render(" · "+stamp)
			lines = append(lines, label, botBubbleStyle.Render(text))
		}
	}
	if state.Pending {
		lines = append(lines, dimStyle.Render(appTitle+" is typing "+m.spinner.View()))
	}
	return lines
}

func (m *model) syncChatViewport() {
	if m.view != viewChat {
		return
	}
	width, height := m.chatLayout()
	atBottom := m.chatViewport.AtBottom()
	m.chatViewport.Width = width
	m.chatViewport.Height = height
	m.chatViewport.SetContent(strings.Join(m.chatLines(width), "\n"))
	if atBottom || (m.channel != nil && m.channel.Pending()) {
		m.chatViewport.GotoBottom()
	}
}

func (m *model) resize() {
	width, _ := m.bodySize()
	m.signInList.SetSize(width, 8)
	m.emailInput.Width = width - len(m.emailInput.Prompt) - 2
	m.nameInput.Width = width - len(m.nameInput.Prompt) - 2
	m.msgInput.SetWidth(width - 4)
	m.help.Width = width
}

func (m model) chatLayout() (int, int) {
	width, height := m.bodySize()
	// who line, input box with border, footer lines
	chatHeight := height - (m.msgInput.Height() + 2) - 1
	if m.showLogs {
		chatHeight -= m.logViewport.Height + 2
	}
	if chatHeight < 3 {
		chatHeight = 3
	}
	return width, chatHeight
}

func (m model) bodySize() (int, int) {
	return bodySize(m.width, m.height)
}

func guestErrorText(err error) string {
	switch {
	case errors.Is(err, identity.ErrBlankHandle):
		return "Enter your email to continue."
	default:
		return "Could not start a session: " + err.Error()
	}
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

func resolveCmd(ctx context.Context, r *identity.Resolver) tea.Cmd {
	return func() tea.Msg {
		return resolvedMsg{state: r.Resolve(ctx)}
	}
}

func listenAuth(events <-chan identity.AuthEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		return authEventMsg{event: ev, ok: ok}
	}
}

func startSignInCmd(ctx context.Context, r *identity.Resolver) tea.Cmd {
	return func() tea.Msg {
		return signInStartedMsg{err: r.StartFederated(ctx)}
	}
}

func submitGuestCmd(ctx context.Context, r *identity.Resolver, email, name string) tea.Cmd {
	return func() tea.Msg {
		session, err := r.SubmitGuest(ctx, email, name)
		return guestResultMsg{session: session, err: err}
	}
}

func signOutCmd(ctx context.Context, r *identity.Resolver) tea.Cmd {
	return func() tea.Msg {
		return signedOutMsg{err: r.SignOut(ctx)}
	}
}

func sendCmd(ctx context.Context, c *chat.Channel, req chat.Request) tea.Cmd {
	return func() tea.Msg {
		return replyMsg{channel: c, result: c.Send(ctx, req)}
	}
}
