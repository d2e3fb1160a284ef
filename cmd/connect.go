/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	dwire "github.com/allbin/go-dwire"
	"github.com/allbin/go-dwire/internal/simdev"
	"github.com/allbin/go-dwire/internal/tui/components"
	"github.com/allbin/go-dwire/internal/tui/keys"
	"github.com/allbin/go-dwire/internal/tui/models"
	"github.com/allbin/go-dwire/internal/tui/styles"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// simPort names the simulated adapter used by --simulate
const simPort = "sim0"

// connectCmd represents the connect command
var connectCmd = &cobra.Command{
	Use:   "connect [port]",
	Short: "Find a debugWIRE device and its baud rate",
	Long: `Search for a debugWIRE device and report the baud rate it answers at.

Without a port every USB serial adapter is tried in turn until one has a
target behind it. With a port only that adapter is tried. A default port
can be set as "port" in the config file or with DWIRE_PORT.

Each trial opens the port at a candidate rate, sends a break and samples
the reply. Replies at a too-high rate estimate how far off it is; once 0x55
comes back exactly, the range of working rates is measured and its middle
is validated with one more break.

Example usage:
  dwire connect
  dwire connect /dev/ttyUSB0 --trace
  dwire connect --tui
  dwire connect --simulate 9600 --trace`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		useTUI, _ := cmd.Flags().GetBool("tui")
		simulate, _ := cmd.Flags().GetInt("simulate")
		trace, _ := cmd.Flags().GetBool("trace")

		var port string
		switch {
		case len(args) == 1:
			port = args[0]
		case simulate == 0:
			port = viper.GetString("port")
		}

		if useTUI {
			if err := runConnectTUI(port, simulate); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}

		logger := newLogger(os.Stderr)
		tracer := dwire.Tracer(dwire.LogTracer{Logger: logger})
		if trace {
			tracer = dwire.MultiTracer(tracer, consoleTracer{w: cmd.OutOrStdout()})
		}

		session, err := newSession(simulate, logger, tracer)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer session.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := session.Connect(ctx, port); err != nil {
			reportConnectError(err)
			session.Close()
			os.Exit(1)
		}

		fmt.Printf("Connected to debugWIRE device on %s at %d baud.\n", session.Port(), session.BaudRate())
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)

	connectCmd.Flags().Bool("tui", false, "Show search progress in an interactive view")
	connectCmd.Flags().Int("simulate", 0, "Search a simulated target running at this baud rate")
	connectCmd.Flags().BoolP("trace", "t", false, "Print every trial")
}

// newSession builds a session on the configured transport, or on a
// simulated bench when simulate is a baud rate
func newSession(simulate int, logger zerolog.Logger, tracer dwire.Tracer) (*dwire.Session, error) {
	var (
		transport  dwire.Transport
		enumerator dwire.Enumerator
		err        error
	)

	if simulate > 0 {
		bench := simdev.NewBench()
		bench.Attach(simPort, simdev.NewTarget(simulate))
		transport = bench
		enumerator = dwire.NewPortList(simPort)
	} else {
		if transport, err = newTransport(); err != nil {
			return nil, err
		}
		if enumerator, err = newEnumerator(); err != nil {
			return nil, err
		}
	}

	opts := append(searchOptions(logger), dwire.WithTracer(tracer))
	return dwire.NewSession(transport, enumerator, nil, opts...)
}

func reportConnectError(err error) {
	switch {
	case errors.Is(err, dwire.ErrDeviceNotFound):
		fmt.Fprintln(os.Stderr, "Couldn't find a debugWIRE device.")
		fmt.Fprintln(os.Stderr, "Check that the target is powered and the DWEN fuse is programmed.")
	case errors.Is(err, dwire.ErrNamedPortUnreachable):
		fmt.Fprintf(os.Stderr, "Couldn't connect to debugWIRE device: %v\n", err)
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(os.Stderr, "Search cancelled.")
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}

// consoleTracer prints one line per trial
type consoleTracer struct {
	w io.Writer
}

func (t consoleTracer) Trial(e dwire.TrialEvent) {
	fmt.Fprintln(t.w, e.String())
}

func (t consoleTracer) Phase(name string) {
	if name != "descent" {
		fmt.Fprintf(t.w, "Searching %s.\n", name)
	}
}

func (t consoleTracer) Chosen(baudRate int) {
	fmt.Fprintf(t.w, "Chose baud rate %d.\n", baudRate)
}

// connectModel represents the Bubble Tea model for the connect command
type connectModel struct {
	*models.SearchModel
	table     *components.TrialTable
	statusBar *components.StatusBar
	spinner   spinner.Model
	help      help.Model
	keys      keys.ConnectKeys
}

func runConnectTUI(port string, simulate int) error {
	var p *tea.Program

	// Keep log output off the alt screen
	logger := newLogger(io.Discard)
	tracer := models.Tracer{Send: func(msg tea.Msg) { p.Send(msg) }}

	session, err := newSession(simulate, logger, tracer)
	if err != nil {
		return err
	}

	searchModel := models.NewSearchModel(session, port)
	m := connectModel{
		SearchModel: searchModel,
		table:       components.NewTrialTable(80, 10), // Will be properly sized by WindowSizeMsg
		statusBar:   components.NewStatusBar("dwire connect", port),
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.StatusSearchingStyle)),
		help:        help.New(),
		keys:        keys.NewConnectKeys(),
	}

	p = tea.NewProgram(&m, tea.WithAltScreen())
	_, err = p.Run()

	// Ensure cleanup
	m.Cleanup()
	if err != nil {
		return err
	}

	if m.IsConnected() {
		fmt.Printf("Connected to debugWIRE device on %s at %d baud.\n", m.ConnectedPort(), m.BaudRate())
	} else if m.GetError() != nil {
		reportConnectError(m.GetError())
	}
	return nil
}

func (m *connectModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.search(m.SearchModel.Connect))
}

// search starts a background search and reports its result as a message
func (m *connectModel) search(run func() models.ResultMsg) tea.Cmd {
	m.SetSearching(true)
	m.statusBar.SetSearching()
	return func() tea.Msg {
		return run()
	}
}

func (m *connectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// Status bar and help are single lines, the content border one more
		verticalMarginHeight := 3
		m.table.SetSize(msg.Width, msg.Height-verticalMarginHeight)
		m.statusBar.SetWidth(msg.Width)
		m.help.Width = msg.Width
		m.SetReady(true)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case models.TrialMsg:
		m.table.AddTrial(msg.Event)
		m.statusBar.SetPort(msg.Event.Attempt.Port)
		m.statusBar.SetTrials(m.table.Len())

	case models.PhaseMsg:
		m.statusBar.SetPhase(msg.Phase)

	case models.ChosenMsg:
		m.statusBar.SetPhase("validate")

	case models.ResultMsg:
		m.SetResult(msg)
		if msg.Err != nil {
			m.statusBar.SetFailed(msg.Err)
		} else {
			m.statusBar.SetConnected(msg.Port, msg.BaudRate)
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			// Cleanup waits for the search, which needs the program running
			m.Cancel()
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll

		case key.Matches(msg, m.keys.Reset):
			if !m.IsSearching() {
				m.table.Clear()
				m.statusBar.SetTrials(0)
				m.statusBar.SetPort("")
				cmds = append(cmds, m.search(m.SearchModel.Reset))
			}

		case key.Matches(msg, m.keys.Up):
			m.table.MoveUp()

		case key.Matches(msg, m.keys.Down):
			m.table.MoveDown()

		case key.Matches(msg, m.keys.GotoTop):
			m.table.GotoTop()

		case key.Matches(msg, m.keys.GotoBottom):
			m.table.GotoBottom()
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *connectModel) View() string {
	var content string
	if m.IsReady() {
		content = m.table.View()
	} else {
		content = "Initializing..."
	}

	if err := m.GetError(); err != nil {
		content = lipgloss.JoinVertical(lipgloss.Left, content, styles.ErrorStyle.Render(err.Error()))
	}

	timestamp := time.Now().Format("15:04:05")
	statusBar := m.statusBar.View(m.spinner.View(), timestamp)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		styles.ContentBorderStyle.Render(content),
		statusBar,
		m.help.View(m.keys),
	)
}
