package api

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/abelzeko/water-quality-bot/internal/entities"
)

// ParseReadingArgs parses "<pH> <TDS> <Hardness> <Nitrate> [location...]" and
// checks the values against the input limits
func ParseReadingArgs(args string) (entities.Reading, error) {
	fields := strings.Fields(args)
	if len(fields) < 4 {
		return entities.Reading{}, fmt.Errorf("please give pH, TDS, Hardness and Nitrate")
	}

	var reading entities.Reading
	params := []entities.Parameter{entities.PH, entities.TDS, entities.Hardness, entities.Nitrate}
	for i, p := range params {
		num, err := entities.NormalizeNumber(fields[i])
		if err != nil {
			return entities.Reading{}, fmt.Errorf("%s: %w", p.Label(), err)
		}
		v, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return entities.Reading{}, fmt.Errorf("%s must be a number, got %q", p.Label(), fields[i])
		}
		if err := reading.Set(p, v); err != nil {
			return entities.Reading{}, err
		}
	}
	reading.Location = strings.Join(fields[4:], " ")

	if err := reading.Validate(); err != nil {
		return entities.Reading{}, err
	}
	return reading, nil
}
