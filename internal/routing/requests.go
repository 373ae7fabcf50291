package routing

import (
	"submission-judge/internal/sandbox"
	"submission-judge/internal/testcases"
)

// PrincipalHeader carries the authenticated submitter, set by the auth proxy in
// front of the api.
const PrincipalHeader = "X-Principal-ID"

type SubmissionRequest struct {
	ProblemID  string           `json:"problem_id" validate:"required,max=128"`
	Language   sandbox.Language `json:"language" validate:"required,oneof=cpp c java python javascript csharp"`
	SourceCode string           `json:"source_code" validate:"required,max=65536"`
	Mode       testcases.Mode   `json:"mode" validate:"required,oneof=dry_run submit"`
}
