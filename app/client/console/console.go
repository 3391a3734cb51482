// Package console is the terminal presentation surface: it renders the
// conversation read-only and translates typed lines and slash-commands into
// orchestrator events.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"log/slog"

	"github.com/samber/do"
	"github.com/waqarhussain-diyainteractive/clinic-frontend/app/config"
	"github.com/waqarhussain-diyainteractive/clinic-frontend/app/service/chatlog"
	"github.com/waqarhussain-diyainteractive/clinic-frontend/app/service/queue"
)

type pendingRef struct {
	messageID int64
}

type Client struct {
	cfg      *config.Config
	queueSvc *queue.Service

	out io.Writer
	in  io.Reader

	mutex       sync.Mutex
	lastSlots   []chatlog.Slot
	lastPending *pendingRef
	awaiting    chan string
}

func New(di *do.Injector) (*Client, error) {
	return &Client{
		cfg:      do.MustInvoke[*config.Config](di),
		queueSvc: do.MustInvoke[*queue.Service](di),
		out:      os.Stdout,
		in:       os.Stdin,
	}, nil
}

// RunInputLoop reads user input line by line until the reader is exhausted
// or the context is cancelled. Lines typed while a confirmation prompt is
// open answer the prompt instead of becoming events.
func (c *Client) RunInputLoop(ctx context.Context) {
	scanner := bufio.NewScanner(c.in)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		c.mutex.Lock()
		awaiting := c.awaiting
		c.awaiting = nil
		c.mutex.Unlock()

		if awaiting != nil {
			awaiting <- line
			continue
		}

		if ev, ok := c.parse(line); ok {
			c.queueSvc.Add(ev)
		}
	}

	if err := scanner.Err(); err != nil {
		slog.Warn("input loop terminated", "error", err)
	}
}

func (c *Client) parse(line string) (queue.Event, bool) {
	if !strings.HasPrefix(line, "/") {
		return queue.Event{Kind: queue.KindSubmitText, Text: line}, true
	}

	cmd, arg, _ := strings.Cut(line[1:], " ")
	cmd = strings.ToLower(cmd)

	switch cmd {
	case "record":
		return queue.Event{Kind: queue.KindToggleRecording}, true

	case "yes":
		c.mutex.Lock()
		pending := c.lastPending
		c.mutex.Unlock()

		if pending == nil {
			c.Notice("No booking is awaiting confirmation.")
			return queue.Event{}, false
		}

		return queue.Event{Kind: queue.KindConfirmBooking, MessageID: pending.messageID}, true

	case "no":
		c.mutex.Lock()
		pending := c.lastPending
		c.mutex.Unlock()

		if pending == nil {
			c.Notice("No booking is awaiting confirmation.")
			return queue.Event{}, false
		}

		return queue.Event{Kind: queue.KindCancelBooking, MessageID: pending.messageID}, true

	case "new":
		return queue.Event{Kind: queue.KindReset}, true

	case "admin":
		if arg == "" {
			c.Notice("Usage: /admin <path-to-json>")
			return queue.Event{}, false
		}

		return queue.Event{Kind: queue.KindAdminSync, Path: arg}, true

	case "help":
		c.printHelp()
		return queue.Event{}, false
	}

	if n, err := strconv.Atoi(cmd); err == nil {
		c.mutex.Lock()
		slots := c.lastSlots
		c.mutex.Unlock()

		if n < 1 || n > len(slots) {
			c.Notice("No such slot.")
			return queue.Event{}, false
		}

		return queue.Event{Kind: queue.KindSelectSlot, Slot: slots[n-1]}, true
	}

	c.Notice("Unknown command. Type /help for a list.")

	return queue.Event{}, false
}

// Confirm implements the orchestrator's prompter: it prints the question
// and suspends until the input loop delivers the user's answer.
func (c *Client) Confirm(ctx context.Context, question string) (bool, error) {
	reply := make(chan string, 1)

	c.mutex.Lock()
	c.awaiting = reply
	c.mutex.Unlock()

	fmt.Fprintf(c.out, "\n%s [y/N] ", question)

	select {
	case answer := <-reply:
		return strings.HasPrefix(strings.ToLower(answer), "y"), nil

	case <-ctx.Done():
		c.mutex.Lock()
		if c.awaiting == reply {
			c.awaiting = nil
		}
		c.mutex.Unlock()

		return false, ctx.Err()
	}
}

func (c *Client) printHelp() {
	fmt.Fprintln(c.out, `Commands:
  /record        start or stop a voice message
  /1../9         quick-book one of the offered slots
  /yes, /no      confirm or cancel a proposed booking
  /new           start a new conversation
  /admin <path>  sync a clinic database JSON file
  /help          show this list`)
}
