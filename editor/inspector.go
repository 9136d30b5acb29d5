package editor

import (
	"strings"
	"sync"
	"time"

	"github.com/BotXPertUPC/botflow"
)

// DefaultDebounce is the quiet window after the last free-text keystroke
// before the edit buffer is committed to the node payload.
const DefaultDebounce = 400 * time.Millisecond

// Inspector is the two-way binding between the selected node's payload and
// the settings form. Free-text edits sit in a local buffer and commit after
// DefaultDebounce of inactivity, or immediately on Flush, Unbind, or a node
// switch, whichever comes first — so the committed value always equals the
// last buffer value. Image fields and options commit immediately.
type Inspector struct {
	mu       sync.Mutex
	session  *Session
	debounce time.Duration

	nodeID string
	kind   botflow.NodeKind
	text   string
	dirty  bool
	timer  *time.Timer
}

// InspectorOption configures an Inspector.
type InspectorOption func(*Inspector)

// WithDebounce overrides the free-text commit window.
func WithDebounce(d time.Duration) InspectorOption {
	return func(i *Inspector) { i.debounce = d }
}

// NewInspector creates an inspector bound to a session, initially detached.
func NewInspector(s *Session, opts ...InspectorOption) *Inspector {
	i := &Inspector{session: s, debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Bind attaches the inspector to a node and initializes the edit buffer
// from its payload. Binding is keyed strictly by id: re-binding the same id
// is a no-op, so in-place payload mutation never resets a buffer mid-edit.
// Any pending commit for the previous node is flushed first.
func (i *Inspector) Bind(nodeID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if nodeID == i.nodeID {
		return nil
	}
	i.flushLocked()

	n, ok := i.session.NodeSnapshot(nodeID)
	if !ok {
		return ErrNodeNotFound
	}
	i.nodeID = nodeID
	i.kind = n.Kind
	i.dirty = false
	switch p := n.Payload.(type) {
	case botflow.MessagePayload:
		i.text = p.Text
	case botflow.AnswerPayload:
		i.text = p.Text
	case botflow.QuestionPayload:
		i.text = p.Text
	default:
		i.text = ""
	}
	return nil
}

// Bound returns the id of the node the inspector edits, or "".
func (i *Inspector) Bound() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.nodeID
}

// Unbind flushes any pending text commit and detaches the inspector.
func (i *Inspector) Unbind() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.flushLocked()
	i.nodeID = ""
	i.kind = ""
	i.text = ""
	i.dirty = false
}

// SetText records a free-text edit and (re)arms the debounce timer.
func (i *Inspector) SetText(v string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.nodeID == "" {
		return
	}
	i.text = v
	i.dirty = true
	if i.timer != nil {
		i.timer.Stop()
	}
	i.timer = time.AfterFunc(i.debounce, i.Flush)
}

// Text returns the current edit-buffer text.
func (i *Inspector) Text() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.text
}

// Flush commits the edit buffer now, ahead of the debounce window.
func (i *Inspector) Flush() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.flushLocked()
}

func (i *Inspector) flushLocked() {
	if i.timer != nil {
		i.timer.Stop()
		i.timer = nil
	}
	if !i.dirty || i.nodeID == "" {
		return
	}
	i.dirty = false

	n, ok := i.session.NodeSnapshot(i.nodeID)
	if !ok {
		return
	}
	switch p := n.Payload.(type) {
	case botflow.MessagePayload:
		p.Text = i.text
		i.session.UpdatePayload(i.nodeID, p)
	case botflow.AnswerPayload:
		p.Text = i.text
		i.session.UpdatePayload(i.nodeID, p)
	case botflow.QuestionPayload:
		p.Text = i.text
		i.session.UpdatePayload(i.nodeID, p)
	}
}

// SetImageURL commits an image node's URL immediately. The URL is not
// validated here: a broken image only surfaces at render time, which is a
// soft failure, not a structural one. Use ImageURLWarning for the known
// bad-shape hint.
func (i *Inspector) SetImageURL(v string) error {
	return i.updateImage(func(p *botflow.ImagePayload) { p.ImageURL = v })
}

// SetAltText commits an image node's alternative text immediately.
func (i *Inspector) SetAltText(v string) error {
	return i.updateImage(func(p *botflow.ImagePayload) { p.AltText = v })
}

func (i *Inspector) updateImage(fn func(*botflow.ImagePayload)) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.nodeID == "" {
		return ErrNodeNotFound
	}
	n, ok := i.session.NodeSnapshot(i.nodeID)
	if !ok {
		return ErrNodeNotFound
	}
	p, ok := n.Payload.(botflow.ImagePayload)
	if !ok {
		return ErrPayloadMismatch
	}
	fn(&p)
	return i.session.UpdatePayload(i.nodeID, p)
}

// SetOption rewrites the text of option index on the bound question node and
// commits immediately. The option's connection, if any, is left untouched.
func (i *Inspector) SetOption(index int, v string) error {
	return i.updateQuestion(func(p *botflow.QuestionPayload) error {
		if index < 0 || index >= len(p.Options) {
			return ErrOptionOutOfRange
		}
		p.Options[index] = v
		return nil
	})
}

// AddOption appends a placeholder option to the bound question node.
// Existing connections keep their indices.
func (i *Inspector) AddOption() error {
	return i.updateQuestion(func(p *botflow.QuestionPayload) error {
		p.Options = append(p.Options, "Nova opció")
		return nil
	})
}

func (i *Inspector) updateQuestion(fn func(*botflow.QuestionPayload) error) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.nodeID == "" {
		return ErrNodeNotFound
	}
	n, ok := i.session.NodeSnapshot(i.nodeID)
	if !ok {
		return ErrNodeNotFound
	}
	p, ok := n.Payload.(botflow.QuestionPayload)
	if !ok {
		return ErrNotAQuestion
	}
	if err := fn(&p); err != nil {
		return err
	}
	return i.session.UpdatePayload(i.nodeID, p)
}

// ImageURLWarning flags URL shapes known not to resolve to a direct image.
// It returns a user-facing hint, or "" when the URL looks usable.
func ImageURLWarning(url string) string {
	if strings.Contains(url, "images.app.goo.gl") || strings.Contains(url, "google.com/imgres") {
		return "Google Images links are not direct image URLs; copy the image address instead."
	}
	return ""
}
