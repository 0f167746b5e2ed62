// Package match computes nearest-POI associations for tracked assets.
package match

import (
	"github.com/kass/go-skytrack/pkg/geodesy"
	"github.com/kass/go-skytrack/pkg/models"
)

// Match returns one Link per asset that has a valid coordinate and at
// least one reachable POI. The scan is a plain minimum over POI order, so
// ties resolve to the first POI deterministically. Assets without a
// candidate are omitted entirely, never emitted with a null distance.
func Match(assets []models.Asset, pois []models.POI) []models.Link {
	if len(assets) == 0 || len(pois) == 0 {
		return []models.Link{}
	}

	links := make([]models.Link, 0, len(assets))
	for _, asset := range assets {
		if !asset.Coordinate.Valid() {
			continue
		}

		var (
			best     models.POI
			bestDist float64
			found    bool
		)
		for _, p := range pois {
			d, ok := geodesy.Distance(asset.Coordinate, p.Coordinate)
			if !ok {
				continue // undefined distance is "no candidate", not zero
			}
			if !found || d < bestDist {
				best = p
				bestDist = d
				found = true
			}
		}
		if !found {
			continue
		}

		links = append(links, models.Link{
			AssetID:       asset.ID,
			AssetPosition: asset.Coordinate,
			POI:           best,
			DistanceM:     bestDist,
			DistanceMi:    bestDist / geodesy.MetersPerMile,
		})
	}
	return links
}
