package posts

// Header holds the column names of a dataset, in file order.
type Header []string

// Row is one data record as read from the source file.
type Row struct {
	Line   int      `json:"line"`
	Fields []string `json:"fields"`
}

// Dataset represents a loaded posts file split into header and data rows
type Dataset struct {
	Header Header `json:"header"`
	Rows   []Row  `json:"rows"`
	CRLF   bool   `json:"crlf"`
}
