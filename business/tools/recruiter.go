package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/superfeelapi/goVoiceAgent/business/ledger"
)

var scriptStages = []string{"intro", "reason", "decline_handling", "engagement", "closing"}

type recruiterData struct {
	CandidateName  string `json:"candidate_name"`
	InterestStatus string `json:"interest_status"`
	DeclineReason  string `json:"decline_reason"`
	ScriptStage    string `json:"script_stage"`
	Summary        string `json:"summary"`
}

// Recruiter returns the tool set of the outbound recruiting script.
func Recruiter(l *ledger.Ledger) []*Tool {
	return []*Tool{
		{
			Name:        CollectData,
			Description: "Call this tool whenever you extract key information from the conversation. When the call is complete and you've said goodbye, call this with summary to finalize the call.",
			Parameters: objectSchema(map[string]any{
				"candidate_name":  stringProp("The candidate's name once confirmed"),
				"interest_status": stringProp("Current interest status", ledger.StatusInterested, ledger.StatusNotInterested, ledger.StatusMoreDetails),
				"decline_reason":  stringProp("If not interested, the specific reason given (salary, location, timing, etc.)"),
				"script_stage":    stringProp("Current stage of the script", scriptStages...),
				"summary":         stringProp("Final summary of the call (only provide when call is complete and you've said goodbye)"),
			}),
			Handler: func(_ context.Context, raw json.RawMessage) (Result, error) {
				var args recruiterData
				if err := decodeArgs(raw, &args); err != nil {
					return Result{}, err
				}

				l.Update(ledger.CandidateName, args.CandidateName)
				l.Update(ledger.InterestStatus, args.InterestStatus)
				l.Update(ledger.DeclineReason, args.DeclineReason)
				l.Update(ledger.ScriptStage, args.ScriptStage)

				if strings.TrimSpace(args.Summary) != "" {
					l.Update(ledger.Summary, args.Summary)
					return Result{Finalize: true}, nil
				}

				return Result{Output: "Data collected successfully"}, nil
			},
		},
	}
}
