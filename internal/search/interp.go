package search

import (
	"fmt"
	"math"
)

// vmafLerpCRF produces a crf between two attempts by linear interpolation of
// their VMAF scores towards minVMAF. worse must have the higher crf and a VMAF
// at or below minVMAF; better must score higher. The result always lies
// strictly between better.CRF and worse.CRF.
func vmafLerpCRF(minVMAF float64, worse, better Attempt) int {
	if !(worse.VMAF <= minVMAF && worse.VMAF < better.VMAF && better.CRF < worse.CRF) {
		panic(fmt.Sprintf("invalid vmafLerpCRF usage: worse=%+v better=%+v", worse, better))
	}

	vmafSpan := better.VMAF - worse.VMAF
	fraction := (minVMAF - worse.VMAF) / vmafSpan

	crfSpan := float64(worse.CRF - better.CRF)
	next := int(math.Round(float64(worse.CRF) - crfSpan*fraction))

	next = max(next, better.CRF+1)
	return min(next, worse.CRF-1)
}
