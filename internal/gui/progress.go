package gui

import (
	"strings"
	"sync"

	"sortmedia/internal/worker"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// maxVisibleLines bounds the text laid out in the dialog. The full output is
// still kept for Text.
const maxVisibleLines = 500

// progressDialog is the modal surface of one sort run. It is created hidden
// and cannot be dismissed until SetClosable(true).
type progressDialog struct {
	dlg         *dialog.CustomDialog
	output      *widget.Label
	scroll      *container.Scroll
	bar         *widget.ProgressBar
	status      *widget.Label
	closeButton *widget.Button

	mu   sync.Mutex
	text strings.Builder
	tail *tailBuffer
}

func newProgressDialog(parent fyne.Window) *progressDialog {
	p := &progressDialog{
		output: widget.NewLabel(""),
		bar:    widget.NewProgressBar(),
		status: widget.NewLabel("Sorting..."),
		tail:   newTailBuffer(maxVisibleLines),
	}
	p.output.TextStyle = fyne.TextStyle{Monospace: true}
	p.output.Wrapping = fyne.TextWrapBreak
	p.scroll = container.NewVScroll(p.output)
	p.scroll.SetMinSize(fyne.NewSize(560, 320))

	p.closeButton = widget.NewButton("Close", func() {
		p.dlg.Hide()
	})
	p.closeButton.Disable()

	content := container.NewBorder(
		container.NewVBox(p.status, p.bar),
		container.NewHBox(p.closeButton),
		nil, nil,
		p.scroll,
	)
	p.dlg = dialog.NewCustomWithoutButtons("Sorting media", content, parent)
	return p
}

// Show makes the dialog visible
func (p *progressDialog) Show() {
	fyne.DoAndWait(p.dlg.Show)
}

// Append adds worker output and returns once it has been drawn
func (p *progressDialog) Append(text string) {
	p.mu.Lock()
	p.text.WriteString(text)
	p.tail.Write(text)
	visible := p.tail.String()
	p.mu.Unlock()

	progress, ok := worker.ParseProgress(text)
	fyne.DoAndWait(func() {
		p.output.SetText(visible)
		p.scroll.ScrollToBottom()
		if ok {
			p.bar.SetValue(float64(progress.Percent) / 100)
			p.status.SetText(progress.File)
		}
	})
}

// SetClosable enables or disables the close button
func (p *progressDialog) SetClosable(closable bool) {
	fyne.DoAndWait(func() {
		if closable {
			p.closeButton.Enable()
		} else {
			p.closeButton.Disable()
		}
	})
}

// SetStatus shows the terminal status of the run
func (p *progressDialog) SetStatus(status string) {
	fyne.DoAndWait(func() {
		p.status.SetText(status)
	})
}

// Text returns everything appended so far
func (p *progressDialog) Text() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.text.String()
}

// tailBuffer keeps the last limit lines of a text stream
type tailBuffer struct {
	limit   int
	lines   []string // complete lines, newline included
	partial string
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (b *tailBuffer) Write(text string) {
	parts := strings.SplitAfter(b.partial+text, "\n")
	b.partial = parts[len(parts)-1]
	b.lines = append(b.lines, parts[:len(parts)-1]...)
	if over := len(b.lines) - b.limit; over > 0 {
		b.lines = append(b.lines[:0], b.lines[over:]...)
	}
}

func (b *tailBuffer) String() string {
	return strings.Join(b.lines, "") + b.partial
}
