package salesflow

// ResolveStage derives the current stage. Server state wins over the local draft:
// a final sale decides first, then the visit's own acquisition stage, then the
// draft, and Proposal when nothing is known.
func ResolveStage(visit *Visit, sale *Sale, draft Draft) Stage {
	if sale != nil && sale.IsOrderFinal {
		if sale.Status == StatusWon {
			return StagePaymentFollowup
		}
		return StageClosing
	}

	if visit != nil {
		if st, ok := ParseStage(visit.AcquisitionStage); ok && st != StageProposal {
			return st
		}
	}

	if draft.Stage != "" {
		return draft.Stage
	}
	return StageProposal
}
