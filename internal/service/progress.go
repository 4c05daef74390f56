package service

// Progress is a coarse, synthetic estimate of how far a submit has got. It
// moves in fixed jumps as each upload or save call returns; it does not track
// bytes on the wire.
type Progress struct {
	Percent int    `json:"percent"`
	Step    string `json:"step"`
}

type ProgressFunc func(Progress)

const (
	stepCover   = "Uploading cover image..."
	stepGallery = "Uploading gallery images..."
	stepSave    = "Saving to database..."
	stepDone    = "Complete!"
)

// Fixed milestones: cover 10 to 30, gallery images spread over 30 to 80,
// save 85 to 100.
const (
	pctCoverStart   = 10
	pctCoverDone    = 30
	pctGalleryDone  = 80
	pctSaveStart    = 85
	pctSaveFinished = 100
)

func (fn ProgressFunc) report(percent int, step string) {
	if fn != nil {
		fn(Progress{Percent: percent, Step: step})
	}
}

// galleryPercent is the milestone after image i (0-based) of n.
func galleryPercent(i, n int) int {
	return pctCoverDone + (pctGalleryDone-pctCoverDone)*(i+1)/n
}
