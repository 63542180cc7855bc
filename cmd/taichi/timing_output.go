package main

import (
	"fmt"
	"io"
	"time"

	"github.com/weiplanet/taichi/internal/pipeline"
)

func printStageTimings(out io.Writer, timings pipeline.Timings) {
	if out == nil {
		return
	}
	if timings.Has(pipeline.StageWrite) {
		fmt.Fprintf(out, "wrote %.1f ms\n", toMillis(timings.Duration(pipeline.StageWrite)))
	}
	if timings.Has(pipeline.StageCompile) {
		fmt.Fprintf(out, "compiled %.1f ms\n", toMillis(timings.Duration(pipeline.StageCompile)))
	}
	if timings.Has(pipeline.StageLoad) {
		fmt.Fprintf(out, "loaded %.1f ms\n", toMillis(timings.Duration(pipeline.StageLoad)))
	}
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
