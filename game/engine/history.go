package engine

import "time"

// addEvent appends to the history, stamping sequence, day and time
func (e *CityEngine) addEvent(entry EventEntry) {
	entry.Sequence = len(e.history) + 1
	entry.Day = e.statistics.DaysActive
	entry.Timestamp = time.Now().Unix()
	e.history = append(e.history, entry)
}

// GetHistory returns the complete event history, oldest first
func (e *CityEngine) GetHistory() []EventEntry {
	return e.history
}

// GetLastEvent returns the most recent event, or nil if there is none
func (e *CityEngine) GetLastEvent() *EventEntry {
	if len(e.history) == 0 {
		return nil
	}
	return &e.history[len(e.history)-1]
}

// EventsOfKind filters the history by kind
func (e *CityEngine) EventsOfKind(kind string) []EventEntry {
	var out []EventEntry
	for _, entry := range e.history {
		if entry.Kind == kind {
			out = append(out, entry)
		}
	}
	return out
}
