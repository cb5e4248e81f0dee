package devserver

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/taxbook/taxbook-go/api"
)

func (s *Server) handleActivityCodes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	search := strings.ToLower(q.Get("search"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 {
		limit = 500
	}

	var matched []api.ActivityCode
	for _, code := range s.store.listActivityCodes() {
		if search != "" && !strings.Contains(strings.ToLower(code.Name), search) && !strings.Contains(code.Code, search) {
			continue
		}
		matched = append(matched, code)
		if len(matched) == limit {
			break
		}
	}
	if matched == nil {
		matched = []api.ActivityCode{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"count": len(matched), "results": matched})
}

// handleUnifiedTax produces a canned report: enough shape for the client
// and the CLI, no real tax math.
func (s *Server) handleUnifiedTax(w http.ResponseWriter, r *http.Request) {
	var req api.UnifiedTaxRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.Quarter < 1 || req.Quarter > 4 {
		writeFieldErrors(w, map[string][]string{"quarter": {"Квартал должен быть от 1 до 4."}})
		return
	}

	var totalIncome float64
	s.store.withTransactions(accountFrom(r).ID, func(txs map[int64]*api.Transaction, _ *int64) {
		for _, tx := range txs {
			if tx.TransactionType != "income" || !tx.IsTaxable {
				continue
			}
			amount, err := strconv.ParseFloat(tx.Amount, 64)
			if err != nil {
				continue
			}
			totalIncome += amount
		}
	})

	writeJSON(w, http.StatusOK, api.UnifiedTaxReport{
		ReportData: map[string]any{
			"year":         req.Year,
			"quarter":      req.Quarter,
			"total_income": fmt.Sprintf("%.2f", totalIncome),
		},
		PDFFile:      fmt.Sprintf("/media/reports/unified-%d-q%d.pdf", req.Year, req.Quarter),
		AIValidation: "Отчет сформирован тестовым сервером, проверка не выполнялась.",
	})
}

func (s *Server) handleConsult(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message   string `json:"message"`
		SessionID string `json:"session_id"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	writeJSON(w, http.StatusOK, api.ConsultReply{
		Assistant: "Тестовый сервер: консультация недоступна. Ваш вопрос: " + req.Message,
		SessionID: req.SessionID,
	})
}

func (s *Server) handleTelegramLink(w http.ResponseWriter, r *http.Request) {
	token := uuid.New().String()
	writeJSON(w, http.StatusOK, map[string]string{
		"link": "https://t.me/taxbook_dev_bot?start=" + token,
	})
}
