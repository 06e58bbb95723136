package main

import (
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// containsPoint reports whether p lies inside or on the boundary of the
// polygon ring. Even-odd ray casting; points on an edge count as inside.
func containsPoint(boundary []GeoPoint, p GeoPoint) bool {
	n := len(boundary)
	if n < 3 {
		return false
	}
	for i := 0; i < n; i++ {
		if onSegment(boundary[i], boundary[(i+1)%n], p) {
			return true
		}
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := boundary[i], boundary[j]
		if (a.Latitude > p.Latitude) != (b.Latitude > p.Latitude) {
			cross := (b.Longitude-a.Longitude)*(p.Latitude-a.Latitude)/(b.Latitude-a.Latitude) + a.Longitude
			if p.Longitude < cross {
				inside = !inside
			}
		}
	}
	return inside
}

func onSegment(a, b, p GeoPoint) bool {
	crossProduct := (p.Latitude-a.Latitude)*(b.Longitude-a.Longitude) - (p.Longitude-a.Longitude)*(b.Latitude-a.Latitude)
	if crossProduct != 0 {
		return false
	}
	withinLat := (a.Latitude <= p.Latitude && p.Latitude <= b.Latitude) || (b.Latitude <= p.Latitude && p.Latitude <= a.Latitude)
	withinLng := (a.Longitude <= p.Longitude && p.Longitude <= b.Longitude) || (b.Longitude <= p.Longitude && p.Longitude <= a.Longitude)
	return withinLat && withinLng
}

// validateLocation returns the first zone, in id order, that approves the
// species and contains the point. Pure read over the zone registry.
func (s *SmartContract) validateLocation(ctx contractapi.TransactionContextInterface, speciesCode string, point GeoPoint) (*HarvestZone, error) {
	var match *HarvestZone
	approved := []string{}
	err := s.eachZone(ctx, func(zone HarvestZone) (bool, error) {
		if !approvesSpecies(zone, speciesCode) {
			return true, nil
		}
		approved = append(approved, zone.ID)
		if containsPoint(zone.Boundary, point) {
			z := zone
			match = &z
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, validationError(CodeLocationNotApproved,
			"point (%.4f, %.4f) is not inside any zone approved for %s", point.Latitude, point.Longitude, speciesCode).
			withDetail("approvedZones", approved)
	}
	return match, nil
}

func approvesSpecies(zone HarvestZone, code string) bool {
	for _, c := range zone.ApprovedSpecies {
		if c == code {
			return true
		}
	}
	return false
}
