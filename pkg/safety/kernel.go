package safety

import "sync"

// Kernel bundles the three safety checks behind one value that the rest of
// elon depends on: path policy, identity integrity, and command policy.
// It is the only thing in the codebase that is allowed to say "this
// mutation may proceed".
type Kernel struct {
	mu        sync.RWMutex
	policy    Policy
	cmdPolicy CommandPolicy
	identity  *IdentityGuard
}

// NewKernel constructs a Kernel. identity may be nil in tests that don't
// exercise identity tampering.
func NewKernel(policy Policy, cmdPolicy CommandPolicy, identity *IdentityGuard) *Kernel {
	return &Kernel{policy: policy, cmdPolicy: cmdPolicy, identity: identity}
}

// SetPolicy replaces the path policy (e.g. after AGENTS.md is reloaded).
func (k *Kernel) SetPolicy(p Policy) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.policy = p
}

// PathSafe checks p against the current policy.
func (k *Kernel) PathSafe(p string) PathDecision {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return PathSafe(p, k.policy)
}

// CommandSafe checks cmd against the current command policy.
func (k *Kernel) CommandSafe(cmd string) CommandDecision {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return CommandSafe(cmd, k.cmdPolicy)
}

// IdentityHalted reports whether mutating operations must be refused
// because the identity guard detected tampering. When no identity guard is
// configured, mutations are never halted on this basis.
func (k *Kernel) IdentityHalted() (bool, IdentityVerification) {
	if k.identity == nil {
		return false, IdentityVerification{Valid: true}
	}
	v, err := k.identity.Verify()
	if err != nil {
		// A verification failure (e.g. I/O error) is treated the same as
		// tampering: we cannot prove the identity files are intact.
		return true, IdentityVerification{Valid: false}
	}
	return !v.Valid, v
}

// AcknowledgeIdentity re-pins identity checksums, clearing any halt.
func (k *Kernel) AcknowledgeIdentity() error {
	if k.identity == nil {
		return nil
	}
	return k.identity.Acknowledge()
}

// MayMutate is the single gate the Atomic Mutator and Spec Executor consult
// before touching a path: identity must not be halted, and the path must
// be safe.
func (k *Kernel) MayMutate(path string) (bool, string) {
	if halted, _ := k.IdentityHalted(); halted {
		return false, "identity files have been tampered with; acknowledge required"
	}
	decision := k.PathSafe(path)
	return decision.Safe, decision.Reason
}
