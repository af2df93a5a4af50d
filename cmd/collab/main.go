package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"collabdocs/internal/collab"

	"github.com/segmentio/ksuid"
)

// A headless terminal client for the collaboration protocol. Each line typed
// replaces the document content; slash commands drive cursor, selection and
// connection control. Useful for exercising a server without a browser.
func main() {
	var (
		url  = flag.String("url", "ws://localhost:8080/ws/documents", "collaboration endpoint (without document id)")
		doc  = flag.String("doc", "", "document id to open (required)")
		user = flag.String("user", "", "user id (default: generated)")
		name = flag.String("name", "", "display name")
	)
	flag.Parse()

	if *doc == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *user == "" {
		*user = "cli-" + ksuid.New().String()
	}

	session, err := collab.Open(collab.Options{
		URL:        *url,
		DocumentID: *doc,
		UserID:     *user,
		UserName:   *name,
		OnContent: func(content string) {
			fmt.Printf("\n--- document now ---\n%s\n--------------------\n> ", content)
		},
	})
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	defer session.Close()

	log.Printf("🔄 Opening document %s as %s...", *doc, *user)
	fmt.Println(`Type text to replace the document. Commands: /cursor X Y, /sel START END, /who, /reconnect, /quit`)

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "/quit":
			return

		case line == "/reconnect":
			session.Reconnect()

		case line == "/who":
			fmt.Printf("state=%s active_users=%d", session.State(), session.ActiveUsers())
			if errMsg := session.ConnectionError(); errMsg != "" {
				fmt.Printf(" error=%q", errMsg)
			}
			fmt.Println()
			for id, c := range session.RemoteCursors() {
				fmt.Printf("  cursor %s (%s) at %s\n", c.UserName, id, string(c.Position))
			}
			for id, sel := range session.RemoteSelections() {
				fmt.Printf("  selection %s (%s) [%d:%d]\n", sel.UserName, id, sel.Selection.Start, sel.Selection.End)
			}

		case strings.HasPrefix(line, "/cursor "):
			fields := strings.Fields(line)
			if len(fields) != 3 {
				fmt.Println("usage: /cursor X Y")
				break
			}
			x, errX := strconv.ParseFloat(fields[1], 64)
			y, errY := strconv.ParseFloat(fields[2], 64)
			if errX != nil || errY != nil {
				fmt.Println("usage: /cursor X Y")
				break
			}
			pos, _ := json.Marshal(map[string]float64{"x": x, "y": y})
			session.SendCursorPosition(pos)

		case strings.HasPrefix(line, "/sel "):
			fields := strings.Fields(line)
			if len(fields) != 3 {
				fmt.Println("usage: /sel START END")
				break
			}
			start, errS := strconv.Atoi(fields[1])
			end, errE := strconv.Atoi(fields[2])
			if errS != nil || errE != nil {
				fmt.Println("usage: /sel START END")
				break
			}
			session.SendSelection(collab.SelectionRange{Start: start, End: end})

		default:
			session.SendContentUpdate(line)
		}

		fmt.Print("> ")
	}
}
