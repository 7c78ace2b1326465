package nanoleaf

import (
	"context"
	"errors"
	"time"
)

// DefaultFlash is a five second solid red-orange flash.
var DefaultFlash = Flash{
	Duration: 5 * time.Second,
	Color:    HSB{Hue: 10, Saturation: 100, Brightness: 100},
	Anim:     AnimSolid,
}

// Flash describes the temporary effect shown for one alert.
type Flash struct {
	Duration time.Duration
	Color    HSB
	Anim     AnimType
}

// Command converts f to a displayTemp write. Durations are sent in whole
// seconds, at least one.
func (f Flash) Command() WriteCommand {
	seconds := int(f.Duration / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	anim := f.Anim
	if anim == "" {
		anim = AnimSolid
	}
	return DisplayTemp(seconds, anim, f.Color)
}

// Alerter triggers a [Flash] on a controller. It satisfies the polling
// loop's sink interface.
type Alerter struct {
	client *Client
	flash  Flash
}

// NewAlerter returns an [Alerter] for client.
func NewAlerter(client *Client, flash Flash) (*Alerter, error) {
	if client == nil {
		return nil, errors.New("nanoleaf: client is required")
	}
	return &Alerter{client: client, flash: flash}, nil
}

// TriggerAlert shows the flash once.
func (a *Alerter) TriggerAlert(ctx context.Context) error {
	return a.client.Write(ctx, a.flash.Command())
}
