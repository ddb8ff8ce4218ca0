package spec

import "fmt"

// ReplyKind is the discriminant of an oracle iteration reply. The oracle's
// raw text is untyped; ParseReply is the only place that is allowed to
// guess at its shape — everything else works on a validated Reply.
type ReplyKind string

const (
	ReplyComplete    ReplyKind = "SPEC_COMPLETE"
	ReplyStuck       ReplyKind = "stuck"
	ReplyDryRun      ReplyKind = "dry-run"
	ReplyChange      ReplyKind = "change"
	ReplyMultiChange ReplyKind = "multi-change"
	ReplyCreate      ReplyKind = "create"
	ReplyMultiCreate ReplyKind = "multi-create"
)

// FileEdit is a single change entry, used both standalone (ReplyChange) and
// within a batch (ReplyMultiChange).
type FileEdit struct {
	File    string `json:"file"`
	OldText string `json:"oldText"`
	NewText string `json:"newText"`
}

// FileCreation is a single create entry, used both standalone (ReplyCreate)
// and within a batch (ReplyMultiCreate).
type FileCreation struct {
	File    string `json:"file"`
	Content string `json:"content"`
}

// Reply is the validated form of one oracle iteration response. Exactly
// the fields relevant to Kind are populated; Validate enforces this.
type Reply struct {
	Kind    ReplyKind      `json:"status"`
	Reason  string         `json:"reason,omitempty"` // populated for stuck/dry-run
	Edit    *FileEdit      `json:"edit,omitempty"`
	Edits   []FileEdit     `json:"edits,omitempty"`
	Created *FileCreation  `json:"created,omitempty"`
	Creates []FileCreation `json:"creates,omitempty"`
}

// Validate enforces that a Reply carries exactly the payload its Kind
// requires — a "change" reply with no Edit, or a "stuck" reply that
// somehow carries file edits, is a validation-boundary failure.
func (r *Reply) Validate() error {
	switch r.Kind {
	case ReplyComplete, ReplyStuck, ReplyDryRun:
		return nil
	case ReplyChange:
		if r.Edit == nil {
			return fmt.Errorf("spec: reply kind %q requires edit", r.Kind)
		}
		return nil
	case ReplyMultiChange:
		if len(r.Edits) == 0 {
			return fmt.Errorf("spec: reply kind %q requires at least one edit", r.Kind)
		}
		return nil
	case ReplyCreate:
		if r.Created == nil {
			return fmt.Errorf("spec: reply kind %q requires created", r.Kind)
		}
		return nil
	case ReplyMultiCreate:
		if len(r.Creates) == 0 {
			return fmt.Errorf("spec: reply kind %q requires at least one create entry", r.Kind)
		}
		return nil
	default:
		return fmt.Errorf("spec: unknown reply kind %q", r.Kind)
	}
}
