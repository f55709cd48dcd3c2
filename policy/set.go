package policy

// Set bundles one policy per concern so a role carries a single value. Zero
// fields are filled with defaults by DefaultSet or by the role constructors.
type Set struct {
	Completion     CompletionDetector
	Termination    TerminationPolicy
	LoopPrevention LoopPreventionPolicy
	Approval       ApprovalPolicy
	Checkpoint     CheckpointPolicy
	FollowUp       FollowUpPolicy
}

// DefaultSet returns a Set with every concern on its default policy:
// marker completion, bounded termination erroring at 10 iterations, repeat
// detection at threshold 3, no approval gating, checkpoints every 5
// iterations, and follow-up bounded at 5 phases.
func DefaultSet() Set {
	return Set{
		Completion:     NewMarkerCompletion(),
		Termination:    NewBoundedTermination(),
		LoopPrevention: NewRepeatDetector(),
		Approval:       NewScopedApproval(),
		Checkpoint:     NewIntervalCheckpoint(),
		FollowUp:       NewBoundedFollowUp(),
	}
}

// Normalize fills nil fields with defaults, leaving set fields untouched.
func (s Set) Normalize() Set {
	d := DefaultSet()
	if s.Completion == nil {
		s.Completion = d.Completion
	}
	if s.Termination == nil {
		s.Termination = d.Termination
	}
	if s.LoopPrevention == nil {
		s.LoopPrevention = d.LoopPrevention
	}
	if s.Approval == nil {
		s.Approval = d.Approval
	}
	if s.Checkpoint == nil {
		s.Checkpoint = d.Checkpoint
	}
	if s.FollowUp == nil {
		s.FollowUp = d.FollowUp
	}
	return s
}
