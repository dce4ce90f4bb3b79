package http

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avolkov/biblio/internal/reports"
)

type ReportsController struct {
	reports *reports.Service
}

func NewReportsController(svc *reports.Service) *ReportsController {
	return &ReportsController{reports: svc}
}

// IssuedBooks reports every book currently out on loan. Pass ?format=csv
// for a download.
func (rc *ReportsController) IssuedBooks(c *gin.Context) {
	rows, err := rc.reports.IssuedBooks()
	if err != nil {
		respondInternalError(c, err, "issued books report")
		return
	}

	if c.Query("format") == "csv" {
		rc.sendCSV(c, reports.ReportFilename("issued", time.Now()), func() error {
			return reports.WriteIssuedBooksCSV(c.Writer, rows)
		})
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"rows": rows, "count": len(rows)})
}

// OverdueBooks reports overdue loans with accrued fines. Accepts
// ?threshold_days and ?format=csv.
func (rc *ReportsController) OverdueBooks(c *gin.Context) {
	threshold, ok := parseOptionalQueryID(c, "threshold_days")
	if !ok {
		return
	}

	rows, err := rc.reports.OverdueBooks(int(threshold))
	if err != nil {
		respondInternalError(c, err, "overdue books report")
		return
	}

	if c.Query("format") == "csv" {
		rc.sendCSV(c, reports.ReportFilename("overdue", time.Now()), func() error {
			return reports.WriteOverdueBooksCSV(c.Writer, rows)
		})
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"rows": rows, "count": len(rows)})
}

// DueDates reports outstanding loans grouped into overdue and due-soon.
func (rc *ReportsController) DueDates(c *gin.Context) {
	report, err := rc.reports.DueDates()
	if err != nil {
		respondInternalError(c, err, "due dates report")
		return
	}

	c.IndentedJSON(http.StatusOK, report)
}

func (rc *ReportsController) sendCSV(c *gin.Context, filename string, write func() error) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Status(http.StatusOK)
	if err := write(); err != nil {
		// Headers already went out; nothing left but to log.
		log.Printf("Failed to write CSV report %s: %v", filename, err)
	}
}
