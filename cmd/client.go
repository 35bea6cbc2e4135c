package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"github.com/wfunc/sweepserver/border"
	"github.com/wfunc/sweepserver/grid"
	"github.com/wfunc/sweepserver/logger"
	"github.com/wfunc/sweepserver/network"
)

var (
	clientHost     string
	clientRoom     string
	clientPassword string
	clientName     string
)

const clientUsage = `commands:
  r X Y   reveal
  c X Y   chord
  f X Y   flag
  m X Y   move cursor
  reset   start a new round
  show    print the board
  quit`

func init() {
	clientCmd := &cobra.Command{
		Use:   "client",
		Short: "Play on a running server from the terminal",
		Long: `Connect to a running server, keep a local copy of the board and send
moves typed on stdin.

Without --room a beginner room is created first.

Examples:
  sweepserver client
  sweepserver client --host game.example:8080 --room 3f2a --name ann`,
		RunE: runClient,
	}

	clientCmd.Flags().StringVar(&clientHost, "host", "localhost:8080", "Server address")
	clientCmd.Flags().StringVarP(&clientRoom, "room", "r", "", "Room to join; empty creates a beginner room")
	clientCmd.Flags().StringVarP(&clientPassword, "password", "p", "", "Room password")
	clientCmd.Flags().StringVarP(&clientName, "name", "n", "guest", "Player name")

	rootCmd.AddCommand(clientCmd)
}

type client struct {
	conn  *websocket.Conn
	out   io.Writer
	mutex sync.Mutex
	view  *border.View
	id    uint32
}

func createBeginnerRoom(host string) (string, error) {
	body := `{"name":"beginner","width":9,"height":9,"mine_count":10,"guess_level":1}`
	resp, err := http.Post("http://"+host+"/api/rooms", "application/json", bytes.NewBufferString(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("create room: %s", resp.Status)
	}
	var summary struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return "", err
	}
	return summary.ID, nil
}

func (c *client) send(msg network.Message) error {
	data, err := network.Encode(msg)
	if err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (c *client) show() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.view == nil {
		fmt.Fprintln(c.out, "(no board yet)")
		return
	}
	fmt.Fprint(c.out, c.view.String())
}

// handle applies one server message and redraws after tile changes.
func (c *client) handle(msg network.Message) {
	c.mutex.Lock()
	redraw := false
	switch m := msg.(type) {
	case network.Init:
		c.id = m.ID
		c.view = border.NewView(int(m.Width), int(m.Height), grid.Topology(m.TileType))
		logger.Log.Infof("joined as %d: %dx%d, %d mines", m.ID, m.Width, m.Height, m.MineCount)
	case network.Error:
		logger.Log.Warnf("server refused: error %d", m.Code)
	case network.User:
		logger.Log.Infof("player %d %q score %d", m.ID, m.Username, m.Score)
	case network.Disconnect:
		logger.Log.Infof("player %d left", m.ID)
	case network.Win:
		logger.Log.Info("cleared!")
	case network.Lose:
		logger.Log.Infof("player %d hit a mine", m.ID)
	case network.Reset:
		logger.Log.Infof("new round, %d mines", m.MineCount)
	case network.Cursor:
		c.mutex.Unlock()
		return
	}
	if c.view != nil {
		if err := c.view.Apply(msg); err != nil {
			logger.Log.Warnf("apply %s: %v", msg.Kind(), err)
		}
		switch m := msg.(type) {
		case network.Hole:
			redraw = m.Last
		case network.Tile, network.Chord, network.Board, network.Lose, network.Win:
			redraw = true
		}
	}
	c.mutex.Unlock()
	if redraw {
		c.show()
	}
}

func parseXY(fields []string) (uint32, uint32, error) {
	if len(fields) != 3 {
		return 0, 0, fmt.Errorf("expected X Y")
	}
	x, err := strconv.ParseUint(fields[1], 10, 8)
	if err != nil {
		return 0, 0, err
	}
	y, err := strconv.ParseUint(fields[2], 10, 8)
	if err != nil {
		return 0, 0, err
	}
	return uint32(x), uint32(y), nil
}

// parseCommand turns one input line into a message. Blank lines give nil.
func parseCommand(line string) (network.Message, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}
	if fields[0] == "reset" {
		return network.Reset{}, nil
	}
	x, y, err := parseXY(fields)
	if err != nil {
		return nil, err
	}
	switch fields[0] {
	case "r":
		return network.Tile{X: x, Y: y}, nil
	case "c":
		return network.Chord{X: x, Y: y}, nil
	case "f":
		return network.Flag{X: x, Y: y}, nil
	case "m":
		return network.Cursor{X: x, Y: y}, nil
	}
	return nil, fmt.Errorf("unknown command %q", fields[0])
}

func clientURL(host, room, password, name string) string {
	q := url.Values{}
	q.Set("room", room)
	q.Set("password", password)
	q.Set("name", name)
	u := url.URL{Scheme: "ws", Host: host, Path: "/ws", RawQuery: q.Encode()}
	return u.String()
}

func runClient(cmd *cobra.Command, args []string) error {
	logger.InitDevelopment()
	defer logger.Sync()

	room := clientRoom
	if room == "" {
		id, err := createBeginnerRoom(clientHost)
		if err != nil {
			return err
		}
		room = id
		logger.Log.Infof("Created room %s", id)
	}

	target := clientURL(clientHost, room, clientPassword, clientName)
	logger.Log.Infof("Connecting to %s", target)
	conn, _, err := websocket.DefaultDialer.Dial(target, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	out := cmd.OutOrStdout()
	c := &client{conn: conn, out: out}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				logger.Log.Infof("Read error: %v", err)
				return
			}
			msg, err := network.Decode(data)
			if err != nil {
				logger.Log.Warnf("Bad frame: %v", err)
				continue
			}
			c.handle(msg)
		}
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)
	fmt.Fprintln(out, clientUsage)

	for {
		select {
		case <-done:
			return nil
		case <-interrupt:
			logger.Log.Info("Interrupt received, closing connection.")
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			switch strings.TrimSpace(line) {
			case "quit":
				return nil
			case "show":
				c.show()
				continue
			}
			msg, err := parseCommand(line)
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			if msg == nil {
				continue
			}
			if err := c.send(msg); err != nil {
				return fmt.Errorf("write: %w", err)
			}
		}
	}
}
