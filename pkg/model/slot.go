package model

import "time"

// Slot is a fixed time interval that can be reserved by one holder at a time.
// Holder is non-empty if and only if Booked is true.
type Slot struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	StartTime time.Time `json:"start_time" bson:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" bson:"end_time" validate:"required,gtfield=StartTime"`
	Booked    bool      `json:"booked" bson:"booked"`
	Holder    string    `json:"holder,omitempty" bson:"holder"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Consistent reports whether the booked flag and the holder agree.
func (s *Slot) Consistent() bool {
	return s.Booked == (s.Holder != "")
}

func (s *Slot) Window() *SlotWindow {
	return &SlotWindow{StartTime: s.StartTime, EndTime: s.EndTime}
}

type SlotInput struct {
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
}

type SlotImport struct {
	Slots []SlotInput `json:"slots" validate:"required,min=1,max=500,dive"`
}
