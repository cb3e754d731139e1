// Package export writes timeline plans as CMX 3600 EDLs so a plan can be
// inspected or refined in an NLE before rendering.
package export

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/flona/broll-engine/internal/plan"
)

// GenerateEDL renders a plan as an EDL. Event 001 is the base track; each
// overlay becomes an event whose record timecodes mark its placement on the
// timeline and whose source timecodes cover the trimmed clip.
func GenerateEDL(p *plan.TimelinePlan, title string, frameRate float64) string {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = 30
	}

	isDropFrame := math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01

	lines := []string{fmt.Sprintf("TITLE: %s", SanitizeName(title, 60))}
	if isDropFrame {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	baseDurMs := secToMs(p.ARollDuration)
	lines = append(lines,
		fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", 1, "AX", "AA/V",
			msToTimecode(0, fps), msToTimecode(baseDurMs, fps),
			msToTimecode(0, fps), msToTimecode(baseDurMs, fps)),
		"* FROM CLIP NAME:  A-ROLL",
		fmt.Sprintf("* MEDIA PATH:  %s", p.ARollURL),
	)

	insertions := make([]plan.Insertion, len(p.Insertions))
	copy(insertions, p.Insertions)
	sort.SliceStable(insertions, func(i, j int) bool {
		return insertions[i].StartSec < insertions[j].StartSec
	})

	for i, ins := range insertions {
		durMs := secToMs(ins.DurationSec)
		recInMs := secToMs(ins.StartSec)

		name := ins.BRollID
		mediaPath := ""
		if clip, ok := p.Clip(ins.BRollID); ok {
			mediaPath = clip.URL
			if clip.Description != "" {
				name = clip.Description
			}
		}

		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", i+2, "AX", "V",
				msToTimecode(0, fps), msToTimecode(durMs, fps),
				msToTimecode(recInMs, fps), msToTimecode(recInMs+durMs, fps)),
			fmt.Sprintf("* FROM CLIP NAME:  %s", SanitizeName(name, 60)),
			fmt.Sprintf("* MEDIA PATH:  %s", mediaPath),
		)
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func secToMs(sec float64) int {
	return int(math.Round(sec * 1000))
}

func msToTimecode(ms int, fps int) string {
	totalFrames := int(math.Round(float64(ms) * float64(fps) / 1000.0))
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, seconds, frames)
}
