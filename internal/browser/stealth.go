package browser

import (
	"math/rand"
	"time"

	"github.com/playwright-community/playwright-go"
)

// RandomDelay waits for a random duration between min and max milliseconds
func RandomDelay(min, max int) {
	if min >= max {
		time.Sleep(time.Duration(min) * time.Millisecond)
		return
	}
	time.Sleep(time.Duration(rand.Intn(max-min+1)+min) * time.Millisecond)
}

// HumanScroll scrolls through the page so lazy-loaded footers (where contacts
// usually live) get rendered before the HTML is read.
func HumanScroll(page playwright.Page) error {
	for i := 0; i < 3; i++ {
		if err := page.Mouse().Wheel(0, 600); err != nil {
			return err
		}
		RandomDelay(200, 500)
	}
	_, err := page.Evaluate("window.scrollTo(0, document.body.scrollHeight)")
	return err
}
