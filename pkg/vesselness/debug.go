package vesselness

import (
	"fmt"
	"strings"

	"vesselness3d/internal/models"
	"vesselness3d/pkg/diagnostics"
	"vesselness3d/pkg/hessian"
	"vesselness3d/pkg/volmath"
)

// sigmaTag formats sigma for file names: 1.5 -> "150"
func sigmaTag(sigma float64) string {
	return strings.ReplaceAll(fmt.Sprintf("%.2f", sigma), ".", "")
}

func rangeMessage(label string, v *models.Volume, precise bool) string {
	lo, hi := volmath.Range(v)
	if precise {
		return fmt.Sprintf("%s: %v %v", label, lo, hi)
	}
	return fmt.Sprintf("%s: %.2f %.2f", label, lo, hi)
}

func emitEigenvalues(sink diagnostics.Sink, sigma float64, ev *hessian.Eigenvalues) {
	sink.Disp(fmt.Sprintf("sigma %v", sigma))
	sink.Disp(rangeMessage("eig1", ev.L1, true))
	sink.Disp(rangeMessage("eig2", ev.L2, true))
	sink.Disp(rangeMessage("eig3", ev.L3, true))

	tag := sigmaTag(sigma)
	sink.SaveVectorVolume(fmt.Sprintf("eig_val_as_vec_%s.mhd", tag), []*models.Volume{ev.L1, ev.L2, ev.L3})
	sink.SaveVolume(fmt.Sprintf("eig1_%s.mhd", tag), ev.L1)
	sink.SaveVolume(fmt.Sprintf("eig2_%s.mhd", tag), ev.L2)
	sink.SaveVolume(fmt.Sprintf("eig3_%s.mhd", tag), ev.L3)
}

func emitVesselness(sink diagnostics.Sink, sigma float64, f *fields) {
	sink.Disp(rangeMessage("Ra", f.ra, false))
	sink.Disp(rangeMessage("Rb", f.rb, false))
	sink.Disp(rangeMessage("S", f.s, false))
	sink.Disp(rangeMessage("plate", f.plate, false))
	sink.Disp(rangeMessage("blob", f.blob, false))
	sink.Disp(rangeMessage("background", f.background, false))

	sink.PushSubdir("vesselness")
	defer sink.PopSubdir()

	tag := sigmaTag(sigma)
	sink.SaveVolume(fmt.Sprintf("plate_Ra_1_s%s.mhd", tag), f.plate)
	sink.SaveVolume(fmt.Sprintf("blob_Rb_1_s%s.mhd", tag), f.blob)
	sink.SaveVolume(fmt.Sprintf("background_S_1_s%s.mhd", tag), f.background)
	sink.SaveVolume(fmt.Sprintf("Ra_1_s%s.mhd", tag), f.ra)
	sink.SaveVolume(fmt.Sprintf("Rb_1_s%s.mhd", tag), f.rb)
	sink.SaveVolume(fmt.Sprintf("S_1_s%s.mhd", tag), f.s)
	sink.Disp(fmt.Sprintf("alpha %v beta %v c %v", f.alpha, f.beta, f.c))
}
