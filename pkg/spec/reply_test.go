package spec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReply_Validate_CompleteNeedsNoPayload(t *testing.T) {
	r := &Reply{Kind: ReplyComplete}
	assert.NoError(t, r.Validate())
}

func TestReply_Validate_ChangeRequiresEdit(t *testing.T) {
	r := &Reply{Kind: ReplyChange}
	assert.Error(t, r.Validate())

	r.Edit = &FileEdit{File: "a.ts", OldText: "x", NewText: "y"}
	assert.NoError(t, r.Validate())
}

func TestReply_Validate_MultiChangeRequiresAtLeastOneEdit(t *testing.T) {
	r := &Reply{Kind: ReplyMultiChange}
	assert.Error(t, r.Validate())

	r.Edits = []FileEdit{{File: "a.ts", OldText: "x", NewText: "y"}}
	assert.NoError(t, r.Validate())
}

func TestReply_Validate_UnknownKindRejected(t *testing.T) {
	r := &Reply{Kind: "something-else"}
	assert.Error(t, r.Validate())
}
