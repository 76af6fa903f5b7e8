package exports

// Export types recorded in export_runs.
const (
	TypeDropRequestsCSV = "drop_requests_csv"
	TypeTransfersCSV    = "transfers_csv"
	TypeWorkbookXLSX    = "workbook_xlsx"
)

const Path = "/dashboard/exports"

// Link is one download offered on the exports page.
type Link struct {
	Label string
	Href  string
	Note  string
}

type PageData struct {
	Links []Link
	// Query is the raw filter query string carried into every link.
	Query string
}
