package contact

// Sentinel is stored in every parsed field when a note has fewer than
// NoteLines lines.
const Sentinel = "no data"

// NoPhotoFlag is the photo flag value (compared case-insensitively) that
// selects the layout without a photo.
const NoPhotoFlag = "no"

// NoteLines is the number of note lines a complete contact needs.
const NoteLines = 5

// Record is the contact data parsed from one task's notes.
type Record struct {
	// TaskID is the Asana gid of the task the notes came from
	TaskID string `json:"task_id"`

	// TaskName is kept for filtering and diagnostics only
	TaskName string `json:"task_name"`

	// CreatorID is the gid of the user who created the task
	CreatorID string `json:"creator_id"`

	Fields
}

// Fields holds the six values taken from the note body.
type Fields struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Locality  string `json:"locality"`
	Region    string `json:"region"`
	Phone     string `json:"phone"`
	PhotoFlag string `json:"photo_flag"`
}

// SentinelFields returns Fields with every value set to Sentinel.
func SentinelFields() Fields {
	return Fields{
		FirstName: Sentinel,
		LastName:  Sentinel,
		Locality:  Sentinel,
		Region:    Sentinel,
		Phone:     Sentinel,
		PhotoFlag: Sentinel,
	}
}

// IsSentinel reports whether f is the all-sentinel value produced for short notes.
func (f Fields) IsSentinel() bool {
	return f == SentinelFields()
}
