package builds

import (
	"adventure-server/shared/models"
)

// Flourish carries the parts of a finished adventure that personalise a
// pre-authored build.
type Flourish struct {
	Name      string
	Gender    string
	Level     int
	Gold      int
	Equipment []models.EquipmentItem
}

// ApplyFlourish merges f into b in place. Empty fields leave b unchanged;
// gold and equipment are added to what the sheet already carries.
func ApplyFlourish(b *models.Build, f Flourish) {
	if b == nil {
		return
	}
	if f.Name != "" {
		b.Name = f.Name
	}
	if f.Gender != "" {
		b.Gender = f.Gender
	}
	if f.Level > 0 {
		b.Level = f.Level
	}
	if f.Gold > 0 {
		b.Money.GP += f.Gold
	}
	for _, item := range f.Equipment {
		if item.Name == "" || item.Qty <= 0 {
			continue
		}
		b.AddEquipment(item.Name, item.Qty)
	}
}
