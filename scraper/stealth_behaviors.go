package scraper

import (
	"math/rand"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Amazon cookie consent banner variants, current markup first
var cookieAcceptSelectors = []string{
	"#sp-cc-accept",
	`[data-cel-widget="sp-cc-accept"]`,
	`input[data-action-type="DISMISS"]`,
	"#sp-cc-rejectall-link",
}

// humanDelay sleeps around base with ±30% variance
func humanDelay(base time.Duration) {
	variance := 0.7 + rand.Float64()*0.6
	time.Sleep(time.Duration(float64(base) * variance))
}

func randBetween(min, max float64) float64 {
	return min + rand.Float64()*(max-min)
}

// bezierPath generates a quadratic bezier curve between two points with a
// randomized control point and per-point noise, so mouse movement follows a
// curved, slightly irregular path instead of a straight line
func bezierPath(start, end proto.Point) []proto.Point {
	control := proto.Point{
		X: (start.X+end.X)/2 + randBetween(-100, 100),
		Y: (start.Y+end.Y)/2 + randBetween(-100, 100),
	}

	steps := 15 + rand.Intn(11)
	points := make([]proto.Point, 0, steps)
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps)
		inv := 1 - t
		points = append(points, proto.Point{
			X: inv*inv*start.X + 2*inv*t*control.X + t*t*end.X + randBetween(-2, 2),
			Y: inv*inv*start.Y + 2*inv*t*control.Y + t*t*end.Y + randBetween(-2, 2),
		})
	}
	return points
}

// humanMouseMove moves the cursor along a curved path with small pauses
func humanMouseMove(page *rod.Page, to proto.Point) {
	start := proto.Point{X: randBetween(50, 300), Y: randBetween(50, 300)}
	for _, p := range bezierPath(start, to) {
		if err := page.Mouse.MoveTo(p); err != nil {
			return
		}
		time.Sleep(time.Duration(randBetween(5, 20)) * time.Millisecond)
	}
}

// humanScroll scrolls down in uneven chunks with occasional small
// reverse-scrolls, the way a person skims a product page
func humanScroll(page *rod.Page, total int) {
	scrolled := 0
	for scrolled < total {
		chunk := 50 + rand.Intn(101)
		if err := page.Mouse.Scroll(0, float64(chunk), 1); err != nil {
			return
		}
		scrolled += chunk

		if rand.Float64() < 0.05 {
			back := 20 + rand.Intn(31)
			if err := page.Mouse.Scroll(0, float64(-back), 1); err != nil {
				return
			}
			scrolled -= back
		}

		time.Sleep(time.Duration(randBetween(80, 250)) * time.Millisecond)
	}
}

// dismissCookieBanner clicks a consent banner if one is present. Elements
// is used instead of Element so a missing banner does not block.
func dismissCookieBanner(page *rod.Page) {
	for _, sel := range cookieAcceptSelectors {
		els, err := page.Elements(sel)
		if err != nil || len(els) == 0 {
			continue
		}
		if err := els.First().Click(proto.InputMouseButtonLeft, 1); err == nil {
			humanDelay(300 * time.Millisecond)
			return
		}
	}
}

// interactLikeHuman runs the full post-load interaction sequence: a reading
// pause, banner dismissal, a wander to a neutral area, incremental scrolling
// and a final pause near the price region
func interactLikeHuman(page *rod.Page) {
	humanDelay(time.Second)

	dismissCookieBanner(page)

	humanMouseMove(page, proto.Point{
		X: randBetween(100, 700),
		Y: randBetween(100, 400),
	})

	humanScroll(page, 200+rand.Intn(201))

	humanMouseMove(page, proto.Point{
		X: randBetween(300, 500),
		Y: randBetween(300, 500),
	})

	humanDelay(500 * time.Millisecond)
}
