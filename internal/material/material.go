package material

// Material is everything a contestant-facing client needs to render a
// problem: title, statements, attachments, the submission form, the list of
// scored units and the feedback table layout.
type Material struct {
	Title       string        `json:"title"`
	Statements  []FileVariant `json:"statements"`
	Attachments []Attachment  `json:"attachments"`
	Form        Form          `json:"form"`
	Scorables   []Scorable    `json:"scorables"`
	Feedback    Table         `json:"feedback"`
}

// TotalScoreRange merges the ranges of all scorables.
func (m Material) TotalScoreRange() ScoreRange {
	ranges := make([]ScoreRange, 0, len(m.Scorables))
	for _, s := range m.Scorables {
		ranges = append(ranges, s.Range)
	}
	return MergeRanges(ranges)
}

// ScorableFor returns the scorable matching key, if any.
func (m Material) ScorableFor(key Key) (Scorable, bool) {
	for _, s := range m.Scorables {
		if s.Key == key {
			return s, true
		}
	}
	return Scorable{}, false
}

// FileVariant is one statement rendition, distinguished by language and MIME.
type FileVariant struct {
	Language string `json:"language"`
	MIME     string `json:"mime"`
	Name     string `json:"name"`
	Path     string `json:"path"`
}

// Attachment is an extra downloadable file bundled with the problem.
type Attachment struct {
	Title string `json:"title"`
	Name  string `json:"name"`
	MIME  string `json:"mime"`
	Path  string `json:"path"`
}

// Form describes the submission form fields.
type Form struct {
	Fields []FormField `json:"fields"`
}

// FormField is one upload slot in the submission form.
type FormField struct {
	ID    string     `json:"id"`
	Title string     `json:"title"`
	Types []FileType `json:"types"`
}

// FileType describes an accepted file type for a form field.
type FileType struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Extensions       []string `json:"extensions"`
	PrimaryExtension string   `json:"primary_extension"`
}

// Scorable is one scored unit of a problem, keyed by a subtask key.
type Scorable struct {
	Key   Key        `json:"-"`
	Name  string     `json:"name"`
	Title string     `json:"title"`
	Range ScoreRange `json:"range"`
}

// Table describes the feedback table layout: columns plus one row-group per
// subtask, one row per testcase.
type Table struct {
	Cols      []Col      `json:"cols"`
	RowGroups []RowGroup `json:"row_groups"`
}

// ColKind discriminates feedback table column types.
type ColKind string

const (
	ColRowNumber ColKind = "row_number"
	ColScore     ColKind = "score"
)

// Col is a feedback table column definition.
type Col struct {
	Kind  ColKind     `json:"kind"`
	Title string      `json:"title"`
	Range *ScoreRange `json:"range,omitempty"`
}

// RowGroup is one group of rows, titled after its subtask.
type RowGroup struct {
	Title string `json:"title"`
	Rows  []Row  `json:"rows"`
}

// Row is one feedback table row.
type Row struct {
	Cells []Cell `json:"cells"`
}

// CellKind discriminates feedback table cell types.
type CellKind string

const (
	CellRowNumber CellKind = "row_number"
	CellScore     CellKind = "score"
)

// Cell is one feedback table cell. Score cells reference the testcase key
// whose award outcome fills them.
type Cell struct {
	Kind      CellKind `json:"kind"`
	RowNumber int      `json:"row_number,omitempty"`
	ScoreKey  string   `json:"score_key,omitempty"`
}
