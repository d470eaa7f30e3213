package export

// Dataset defines tabular export content such as a class roster.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}
