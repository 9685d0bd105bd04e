package location

import (
	"context"

	"github.com/kjstillabower/weather-widget/internal/models"
	"github.com/kjstillabower/weather-widget/internal/validation"
)

// StaticGeolocator always reports the same configured position.
type StaticGeolocator struct {
	Coords models.Coordinates
}

func (g StaticGeolocator) CurrentPosition(ctx context.Context, _ Options) (models.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return models.Coordinates{}, err
	}
	if err := validation.ValidateCoordinates(g.Coords); err != nil {
		return models.Coordinates{}, &Error{Reason: ReasonPositionUnavailable, Err: err}
	}
	return g.Coords, nil
}
