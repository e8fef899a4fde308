package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"Melodia/client"
	"Melodia/config"
	"Melodia/core/audio"
	"Melodia/core/player"
	"Melodia/logger"
	"Melodia/model"

	"github.com/spf13/cobra"
)

var (
	listenAPIURL      string
	listenSnapshot    string
	listenAutoAdvance bool
	listenVerbose     bool
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Play the catalog on this machine",
	Long: `Start a terminal player against a running Melodia server. The session
(current song, position, playing flag) is kept in a local bbolt file and
resumed on the next start. Type "help" at the prompt for commands.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		if listenAPIURL == "" {
			listenAPIURL = cfg.PlayerAPIURL
		}
		if listenSnapshot == "" {
			listenSnapshot = cfg.PlayerSnapshotPath
		}
		level := "warn"
		if listenVerbose {
			level = "debug"
		}
		logger.Init(logger.Options{
			Level:      level,
			OutputPath: cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAgeDays,
			Console:    true,
		})
		defer logger.Sync()

		session, err := openListenSession(listenAPIURL, listenSnapshot, listenAutoAdvance)
		if err != nil {
			logger.Fatal("[Listen] failed to start player", logger.ErrorField(err))
		}
		defer session.Close()
		ctrl := session.ctrl

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := ctrl.ReloadOrder(ctx); err != nil {
			fmt.Printf("Could not fetch songs from %s: %v\n", listenAPIURL, err)
		}
		cancel()

		c := &console{player: ctrl, out: os.Stdout}
		if st := ctrl.Status(); st.Song != nil {
			fmt.Fprintf(c.out, "Resuming %q at %s\n", st.Song.Title, formatSeconds(st.Position))
		}
		c.run(context.Background(), os.Stdin)
	},
}

// listenSession is the wired terminal player.
type listenSession struct {
	store *player.BoltStore
	ctrl  *player.Controller
}

// openListenSession wires the bbolt snapshot, the speaker and the API client
// into a controller. The previous session, if any, starts loading right away.
func openListenSession(apiURL, snapshotPath string, autoAdvance bool) (*listenSession, error) {
	store, err := player.OpenBoltStore(snapshotPath)
	if err != nil {
		return nil, fmt.Errorf("cannot open snapshot store %s: %w", snapshotPath, err)
	}

	api := client.New(apiURL, nil)
	speaker := audio.NewSpeaker(nil)
	ctrl := player.New(player.Options{
		Audio:       speaker,
		Store:       store,
		Catalog:     api,
		Notifier:    api,
		AutoAdvance: autoAdvance,
	})
	speaker.SetListener(ctrl)
	return &listenSession{store: store, ctrl: ctrl}, nil
}

func (s *listenSession) Close() {
	if err := s.ctrl.Close(); err != nil {
		logger.Warn("[Listen] failed to release audio", logger.ErrorField(err))
	}
	if err := s.store.Close(); err != nil {
		logger.Warn("[Listen] failed to close snapshot store", logger.ErrorField(err))
	}
}

// controls is the part of player.Controller the console drives.
type controls interface {
	ReloadOrder(ctx context.Context) error
	Order() []model.Song
	PlayTrack(song *model.Song)
	Next()
	Previous()
	TogglePlayPause()
	Seek(seconds float64)
	SetVolume(level float64)
	Stop()
	Status() player.Status
}

type console struct {
	player controls
	out    io.Writer
}

const consoleHelp = `commands:
  list            show the play order
  play N          play song N from the list
  toggle          play/pause
  next, prev      skip forward/back
  seek S          jump to second S
  vol V           volume 0-100
  status          what is playing
  reload          refetch the song list
  stop            stop and forget the session
  quit            exit (the session is kept)`

func (c *console) run(ctx context.Context, in io.Reader) {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(c.out, "> ")
	for scanner.Scan() {
		if !c.exec(ctx, scanner.Text()) {
			return
		}
		fmt.Fprint(c.out, "> ")
	}
}

// exec runs one command line and reports whether to keep reading.
func (c *console) exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	switch strings.ToLower(fields[0]) {
	case "help", "h", "?":
		fmt.Fprintln(c.out, consoleHelp)
	case "list", "ls", "l":
		c.list()
	case "play":
		order := c.player.Order()
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 || n > len(order) {
			fmt.Fprintf(c.out, "usage: play N (1-%d)\n", len(order))
			return true
		}
		song := order[n-1]
		c.player.PlayTrack(&song)
		c.status()
	case "toggle", "t", "pause":
		c.player.TogglePlayPause()
		c.status()
	case "next", "n":
		c.player.Next()
		c.status()
	case "prev", "p", "previous":
		c.player.Previous()
		c.status()
	case "seek":
		s, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			fmt.Fprintln(c.out, "usage: seek SECONDS")
			return true
		}
		c.player.Seek(s)
		c.status()
	case "vol", "volume":
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			fmt.Fprintln(c.out, "usage: vol 0-100")
			return true
		}
		c.player.SetVolume(v / 100)
		fmt.Fprintf(c.out, "volume %.0f%%\n", c.player.Status().Volume*100)
	case "status", "s":
		c.status()
	case "reload":
		if err := c.player.ReloadOrder(ctx); err != nil {
			fmt.Fprintf(c.out, "reload failed: %v\n", err)
			return true
		}
		c.list()
	case "stop":
		c.player.Stop()
		fmt.Fprintln(c.out, "stopped")
	case "quit", "q", "exit":
		return false
	default:
		fmt.Fprintf(c.out, "unknown command %q, try help\n", fields[0])
	}
	return true
}

func (c *console) list() {
	order := c.player.Order()
	if len(order) == 0 {
		fmt.Fprintln(c.out, "no songs")
		return
	}
	current := ""
	if st := c.player.Status(); st.Song != nil {
		current = st.Song.ID
	}
	for i, s := range order {
		marker := " "
		if s.ID == current {
			marker = "*"
		}
		fmt.Fprintf(c.out, "%s%3d  %-40s %s\n", marker, i+1, s.Title, formatSeconds(float64(s.Duration)))
	}
}

func (c *console) status() {
	st := c.player.Status()
	if st.Song == nil {
		fmt.Fprintln(c.out, "nothing selected")
		return
	}
	fmt.Fprintf(c.out, "[%s] %s  %s / %s\n",
		st.State, st.Song.Title, formatSeconds(st.Position), formatSeconds(st.Duration))
}

func formatSeconds(s float64) string {
	if s < 0 {
		s = 0
	}
	total := int(s)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func init() {
	rootCmd.AddCommand(listenCmd)
	listenCmd.Flags().StringVar(&listenAPIURL, "api", "", "server API base URL (default PLAYER_API_URL)")
	listenCmd.Flags().StringVar(&listenSnapshot, "snapshot", "", "session file (default PLAYER_SNAPSHOT_PATH)")
	listenCmd.Flags().BoolVar(&listenAutoAdvance, "auto-advance", false, "start the next song when one ends")
	listenCmd.Flags().BoolVarP(&listenVerbose, "verbose", "v", false, "debug logging")
}
