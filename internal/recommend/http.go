package recommend

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/vietddude/curator/internal/core/domain"
)

type recommendationsResponse struct {
	Recommendations []domain.Recommendation `json:"recommendations"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// Handler serves GET /recommend?mode=user|anime&q=<search>.
func Handler(svc *Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		query := r.URL.Query()
		res := svc.Recommend(r.Context(), query.Get("mode"), query.Get("q"))

		w.Header().Set("Content-Type", "application/json")
		if res.OK() {
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(recommendationsResponse{Recommendations: res.Recommendations})
			return
		}

		w.WriteHeader(statusFor(res.Kind))
		_ = json.NewEncoder(w).Encode(errorResponse{Error: res.Message(), Kind: res.Kind.String()})
	})
}

func statusFor(k Kind) int {
	switch k {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindSubjectNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}
