package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ContentRenderer transforms node content before it is printed, e.g.
// markdown to ANSI.
type ContentRenderer func(string) (string, error)

// TextHandler reads prompted lines and writes text output.
// Reads happen on a background pump so Input can be cancelled.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer

	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &TextHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
	}
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

func (h *TextHandler) pump() {
	for {
		text, err := h.Reader.ReadString('\n')

		// If we got text (even with EOF), send it
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}

		if err != nil {
			if err == io.EOF {
				close(h.inputChan)
				return
			}
			h.inputChan <- inputResult{err: err}
			// Backoff for non-fatal errors to prevent CPU spikes on persistent failure
			time.Sleep(50 * time.Millisecond)
		}
	}
}

// Input prompts and returns one sanitized, trimmed line.
// Lines rejected by the sanitizer are reported and re-prompted.
func (h *TextHandler) Input(ctx context.Context) (string, error) {
	h.initPump()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
			fmt.Fprint(h.Writer, "> ")
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case res, ok := <-h.inputChan:
			if !ok {
				return "", io.EOF
			}
			if res.err != nil {
				return "", res.err
			}
			clean, err := SanitizeInput(strings.TrimSpace(res.text))
			if err != nil {
				fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
				continue
			}
			return clean, nil
		}
	}
}

// Content prints node content through the renderer, falling back to the
// raw text when rendering fails.
func (h *TextHandler) Content(content string) {
	output := content
	if h.Renderer != nil {
		if rendered, err := h.Renderer(content); err == nil {
			output = rendered
		}
	}
	fmt.Fprintln(h.Writer, strings.TrimSpace(output))
}

// Println writes one line.
func (h *TextHandler) Println(a ...any) {
	fmt.Fprintln(h.Writer, a...)
}

// Printf writes formatted text.
func (h *TextHandler) Printf(format string, a ...any) {
	fmt.Fprintf(h.Writer, format, a...)
}

// SystemOutput prints a message from the runner rather than the story.
func (h *TextHandler) SystemOutput(msg string) {
	fmt.Fprintf(h.Writer, "[System] %s\n", msg)
}
