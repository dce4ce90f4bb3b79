package reports

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

const csvDateLayout = "2006-01-02"

// WriteIssuedBooksCSV renders the issued-books report as CSV.
func WriteIssuedBooksCSV(w io.Writer, rows []IssuedBookRow) error {
	cw := csv.NewWriter(w)

	header := []string{"loan_id", "book_title", "book_author", "member_name", "member_email", "quantity", "checkout_date", "due_date", "status"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			strconv.FormatUint(uint64(row.LoanID), 10),
			row.BookTitle,
			row.BookAuthor,
			row.MemberName,
			row.MemberEmail,
			strconv.Itoa(row.Quantity),
			row.CheckoutDate.Format(csvDateLayout),
			row.DueDate.Format(csvDateLayout),
			row.Status,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteOverdueBooksCSV renders the overdue-books report as CSV.
func WriteOverdueBooksCSV(w io.Writer, rows []OverdueBookRow) error {
	cw := csv.NewWriter(w)

	header := []string{"loan_id", "book_title", "member_name", "member_email", "due_date", "days_overdue", "accrued_fine"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			strconv.FormatUint(uint64(row.LoanID), 10),
			row.BookTitle,
			row.MemberName,
			row.MemberEmail,
			row.DueDate.Format(csvDateLayout),
			strconv.Itoa(row.DaysOverdue),
			strconv.FormatFloat(row.AccruedFine, 'f', 2, 64),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReportFilename builds a dated attachment name like "overdue-2025-03-01.csv".
func ReportFilename(kind string, now time.Time) string {
	return fmt.Sprintf("%s-%s.csv", kind, now.Format(csvDateLayout))
}
