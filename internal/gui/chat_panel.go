package gui

import (
	"context"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"live-text-overlay/internal/chat"
)

// Completer answers a single chat prompt. *chat.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

const roleError = "error"

// ChatPanel is a prompt entry above the conversation history.
type ChatPanel struct {
	client Completer
	logger *logrus.Entry

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	history []chat.Message

	entry     *widget.Entry
	sendBtn   *widget.Button
	list      *widget.List
	container *fyne.Container
}

func NewChatPanel(client Completer, logger *logrus.Entry) *ChatPanel {
	ctx, cancel := context.WithCancel(context.Background())
	cp := &ChatPanel{
		client: client,
		logger: logger.WithField("component", "chat_panel"),
		ctx:    ctx,
		cancel: cancel,
	}
	cp.initializeUI()
	return cp
}

func (cp *ChatPanel) initializeUI() {
	cp.list = widget.NewList(
		func() int {
			cp.mu.Lock()
			defer cp.mu.Unlock()
			return len(cp.history)
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("")
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			cp.mu.Lock()
			msg := cp.history[id]
			cp.mu.Unlock()
			obj.(*widget.Label).SetText(formatMessage(msg))
		},
	)

	cp.entry = widget.NewEntry()
	cp.entry.SetPlaceHolder("Ask something...")
	cp.entry.OnSubmitted = func(string) { cp.send() }
	cp.sendBtn = widget.NewButton("Send", cp.send)

	cp.container = container.NewBorder(
		container.NewBorder(nil, nil, nil, cp.sendBtn, cp.entry),
		nil, nil, nil,
		cp.list,
	)
}

func formatMessage(msg chat.Message) string {
	switch msg.Role {
	case "user":
		return "You: " + msg.Content
	case roleError:
		return "Error: " + msg.Content
	default:
		return "Assistant: " + msg.Content
	}
}

func (cp *ChatPanel) GetContainer() fyne.CanvasObject {
	return cp.container
}

// Messages returns a copy of the conversation so far.
func (cp *ChatPanel) Messages() []chat.Message {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return append([]chat.Message(nil), cp.history...)
}

// send posts the entry text. Called on the UI goroutine; the request runs
// in the background and input is disabled until it returns.
func (cp *ChatPanel) send() {
	prompt := strings.TrimSpace(cp.entry.Text)
	if prompt == "" {
		return
	}

	cp.entry.SetText("")
	cp.setBusy(true)
	cp.appendMessage(chat.Message{Role: "user", Content: prompt})

	go func() {
		answer, err := cp.client.Complete(cp.ctx, prompt)
		reply := chat.Message{Role: "assistant", Content: answer}
		if err != nil {
			cp.logger.WithError(err).Warn("Chat completion failed")
			reply = chat.Message{Role: roleError, Content: err.Error()}
		}

		cp.mu.Lock()
		cp.history = append(cp.history, reply)
		cp.mu.Unlock()

		fyne.Do(func() {
			cp.list.Refresh()
			cp.list.ScrollToBottom()
			cp.setBusy(false)
		})
	}()
}

func (cp *ChatPanel) appendMessage(msg chat.Message) {
	cp.mu.Lock()
	cp.history = append(cp.history, msg)
	cp.mu.Unlock()
	cp.list.Refresh()
	cp.list.ScrollToBottom()
}

func (cp *ChatPanel) setBusy(busy bool) {
	if busy {
		cp.entry.Disable()
		cp.sendBtn.Disable()
		return
	}
	cp.entry.Enable()
	cp.sendBtn.Enable()
}

// Close abandons any request in flight.
func (cp *ChatPanel) Close() {
	cp.cancel()
}
