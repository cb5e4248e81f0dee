package api

import "context"

// UnifiedTaxRequest selects the reporting period for the unified tax form.
type UnifiedTaxRequest struct {
	Year    int `json:"year"`
	Quarter int `json:"quarter"` // 1..4
}

// UnifiedTaxReport is the generated report: raw figures, a link to the
// rendered PDF, and the AI cross-check summary.
type UnifiedTaxReport struct {
	ReportData   map[string]any `json:"report_data"`
	PDFFile      string         `json:"pdf_file"`
	AIValidation string         `json:"ai_validation"`
}

func (c *Client) GenerateUnifiedTaxReport(ctx context.Context, req UnifiedTaxRequest) (*UnifiedTaxReport, error) {
	var report UnifiedTaxReport
	if err := c.Post(ctx, "/tax/generate-unified-tax/", req, &report); err != nil {
		return nil, err
	}
	return &report, nil
}
