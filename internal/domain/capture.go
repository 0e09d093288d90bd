package domain

import "time"

// Capture is the durable record created for every captured frame. The
// image bytes themselves live in the artifact store under ImageKey;
// generated artifacts attach to the same record as they complete.
type Capture struct {
	ID              string
	ImageKey        string
	EditedImageKey  string
	VideoKey        string
	InspirationText string
	Persona         string
	VideoScript     string
	CreatedAt       time.Time
}
