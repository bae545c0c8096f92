package screen

import (
	"bufio"
	"fmt"
	"image"
	"regexp"
	"strconv"
	"strings"
)

// " 0: +*eDP-1 1920/344x1080/194+0+0  eDP-1"
var xrandrMonitorRe = regexp.MustCompile(`^\s*(\d+):\s+\+?\*?(\S+)\s+(\d+)/\d+x(\d+)/\d+([+-]\d+)([+-]\d+)`)

// parseXrandrMonitors reads `xrandr --listmonitors` output.
func parseXrandrMonitors(out string) []Source {
	var sources []Source
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		m := xrandrMonitorRe.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		idx, _ := strconv.Atoi(m[1])
		w, _ := strconv.Atoi(m[3])
		h, _ := strconv.Atoi(m[4])
		x, _ := strconv.Atoi(m[5])
		y, _ := strconv.Atoi(m[6])
		sources = append(sources, Source{
			ID:     fmt.Sprintf("screen:%d", idx),
			Name:   m[2],
			Index:  idx,
			Bounds: image.Rect(x, y, x+w, y+h),
		})
	}
	return sources
}

// "[AVFoundation indev @ 0x7f8] [1] Capture screen 0"
var avfDeviceRe = regexp.MustCompile(`\]\s+\[(\d+)\]\s+(Capture screen \d+)\s*$`)

// parseAVFoundationScreens reads `ffmpeg -f avfoundation -list_devices true`
// stderr and returns only the screen devices from the video section.
func parseAVFoundationScreens(out string) []Source {
	var sources []Source
	inVideo := false
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.Contains(line, "AVFoundation video devices"):
			inVideo = true
			continue
		case strings.Contains(line, "AVFoundation audio devices"):
			inVideo = false
			continue
		}
		if !inVideo {
			continue
		}
		m := avfDeviceRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		idx, _ := strconv.Atoi(m[1])
		sources = append(sources, Source{
			ID:    fmt.Sprintf("screen:%d", idx),
			Name:  m[2],
			Index: idx,
		})
	}
	return sources
}
