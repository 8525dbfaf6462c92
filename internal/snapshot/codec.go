package snapshot

import (
	"encoding/json"
	"fmt"

	"github.com/hpungsan/stopka/internal/contact"
	"github.com/hpungsan/stopka/internal/errors"
)

// payload is the stored shape of a record. Pointers distinguish a missing
// field from an empty one.
type payload struct {
	TaskID    *string `json:"task_id"`
	TaskName  *string `json:"task_name"`
	CreatorID *string `json:"creator_id"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Locality  *string `json:"locality"`
	Region    *string `json:"region"`
	Phone     *string `json:"phone"`
	PhotoFlag *string `json:"photo_flag,omitempty"`
}

// Encode serializes r as indented JSON.
func Encode(r contact.Record) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "    ")
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return append(data, '\n'), nil
}

// Decode parses a stored payload. A missing photo_flag reads as
// contact.NoPhotoFlag; any other missing field is CORRUPT_DATA.
func Decode(key string, data []byte) (contact.Record, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return contact.Record{}, errors.NewCorruptData(key, err.Error())
	}

	required := []struct {
		name  string
		value *string
	}{
		{"task_id", p.TaskID},
		{"task_name", p.TaskName},
		{"creator_id", p.CreatorID},
		{"first_name", p.FirstName},
		{"last_name", p.LastName},
		{"locality", p.Locality},
		{"region", p.Region},
		{"phone", p.Phone},
	}
	for _, f := range required {
		if f.value == nil {
			return contact.Record{}, errors.NewCorruptData(key, fmt.Sprintf("missing field %s", f.name))
		}
	}

	photoFlag := contact.NoPhotoFlag
	if p.PhotoFlag != nil {
		photoFlag = *p.PhotoFlag
	}

	return contact.Record{
		TaskID:    *p.TaskID,
		TaskName:  *p.TaskName,
		CreatorID: *p.CreatorID,
		Fields: contact.Fields{
			FirstName: *p.FirstName,
			LastName:  *p.LastName,
			Locality:  *p.Locality,
			Region:    *p.Region,
			Phone:     *p.Phone,
			PhotoFlag: photoFlag,
		},
	}, nil
}
