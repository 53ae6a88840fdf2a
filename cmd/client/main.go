// Terminal chat client. Connects one websocket session, prints the event
// feed with per-type colors and renders a session summary table on exit.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

type Config struct {
	ServerAddr     string `envconfig:"SERVER_ADDR" default:"localhost:8080"`
	ConversationID string `envconfig:"CONVERSATION_ID" required:"true"`
	Token          string `envconfig:"TOKEN" required:"true"`
	// CLIENT_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"CLIENT_COLOURS" default:"true"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client terminated with error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	endpoint := url.URL{
		Scheme:   "ws",
		Host:     config.ServerAddr,
		Path:     "/ws/chat/" + config.ConversationID,
		RawQuery: "token=" + url.QueryEscape(config.Token),
	}

	ws, _, err := websocket.DefaultDialer.Dial(endpoint.String(), nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("dial failed: %w", err)
	}
	defer ws.Close()

	counts := make(map[string]int)
	done := make(chan struct{})

	// Reader: one line per inbound event.
	go func() {
		defer close(done)
		for {
			var frame map[string]any
			if err := ws.ReadJSON(&frame); err != nil {
				return
			}
			eventType, _ := frame["type"].(string)
			counts[eventType]++
			printEvent(config.Colours, eventType, frame)
		}
	}()

	// Writer: every stdin line becomes a chat message.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			payload := map[string]string{"type": "message", "content": scanner.Text()}
			if err := ws.WriteJSON(payload); err != nil {
				return
			}
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case <-done:
	case <-interrupt:
		_ = ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = ws.Close()
		<-done
	}

	renderStats(counts)
	return exitOK, nil
}

func printEvent(colours bool, eventType string, frame map[string]any) {
	line := formatEvent(eventType, frame)
	if !colours {
		fmt.Println(line)
		return
	}
	switch eventType {
	case "message":
		fmt.Println(color.New(color.FgGreen).Render(line))
	case "presence":
		fmt.Println(color.New(color.FgCyan).Render(line))
	case "error":
		fmt.Println(color.New(color.BgBlack, color.FgRed).Render(line))
	case "message_read", "message_delete":
		fmt.Println(color.New(color.FgYellow).Render(line))
	default:
		fmt.Println(color.New(color.FgGray).Render(line))
	}
}

func formatEvent(eventType string, frame map[string]any) string {
	switch eventType {
	case "message":
		return fmt.Sprintf("[%s] %v: %v", eventType, frame["sender_username"], frame["content"])
	case "presence":
		return fmt.Sprintf("[%s] %v is %v", eventType, frame["username"], frame["status"])
	case "error":
		return fmt.Sprintf("[%s] %v", eventType, frame["detail"])
	default:
		raw, _ := json.Marshal(frame)
		return fmt.Sprintf("[%s] %s", eventType, raw)
	}
}

func renderStats(counts map[string]int) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Event", "Count"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for eventType, count := range counts {
		table.Append([]string{eventType, strconv.Itoa(count)})
	}
	table.Render()
}
