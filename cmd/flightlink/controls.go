package main

import (
	"log"
	"time"

	"github.com/banshee-data/flightlink/internal/flightdb"
	"github.com/banshee-data/flightlink/internal/link"
	"github.com/banshee-data/flightlink/internal/records"
)

// recordingLink logs every controls frame it sends to the flight DB.
type recordingLink struct {
	link.LinkInterface
	db        *flightdb.DB
	sessionID string
}

func (r *recordingLink) SendControls(c records.Controls) error {
	if err := r.LinkInterface.SendControls(c); err != nil {
		return err
	}
	if err := r.db.RecordControls(r.sessionID, c, time.Now()); err != nil {
		log.Printf("failed to record controls: %v", err)
	}
	return nil
}
