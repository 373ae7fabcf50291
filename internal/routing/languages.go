package routing

import (
	"net/http"
	"sort"

	"submission-judge/internal/sandbox"
)

// HandleGetLanguages lists every language the api accepts and whether it is
// actually judged.
func HandleGetLanguages(w http.ResponseWriter, _ *http.Request) {
	supported := make([]LanguageResponse, 0, len(sandbox.Compilers))

	for code, compiler := range sandbox.Compilers {
		supported = append(supported, LanguageResponse{
			Code:   string(code),
			Name:   compiler.Language,
			Judged: compiler.Judged,
		})
	}

	sort.Slice(supported, func(i, j int) bool {
		return supported[i].Name < supported[j].Name
	})

	handleJSONResponse(w, supported, http.StatusOK)
}
