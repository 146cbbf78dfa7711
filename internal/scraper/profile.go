package scraper

import (
	"encoding/json"
	"os"

	"go.uber.org/zap"
)

// Profile maps logical listing fields to the selectors that locate them on
// the results page. Selectors are configuration, not guaranteed-correct
// defaults: the target site can change them at any time, so an external JSON
// override may replace any subset of fields without a rebuild.
type Profile struct {
	Card             string   `json:"card"`
	Title            string   `json:"title"`
	Price            string   `json:"price"`
	Address          string   `json:"address"`
	Link             string   `json:"link"`
	Summary          string   `json:"summary"`
	Features         string   `json:"features"`
	Image            string   `json:"image"`
	Captcha          []string `json:"captcha"`
	ResultsContainer string   `json:"results_container"`
}

// DefaultProfile returns the built-in selector profile.
func DefaultProfile() Profile {
	return Profile{
		Card:     "[data-testid='listing-card'], article, li[role='listitem']",
		Title:    "[data-testid='listing-title'], h2, a[aria-label]",
		Price:    "[data-testid='listing-price'], [data-testid='price']",
		Address:  "[data-testid='listing-description'], [data-testid='address'], address",
		Link:     "a[href*='/to-rent/']",
		Summary:  "[data-testid='listing-description'], p",
		Features: "[data-testid='listing-features'] li, ul li, .features li",
		Image:    "img",
		Captcha: []string{
			"iframe[src*='recaptcha']",
			"div.g-recaptcha",
			"iframe[src*='hcaptcha']",
			"text=/verify you are human|unusual traffic|complete the challenge/i",
		},
		ResultsContainer: "[data-testid='regular-listings'], [data-testid='search-results'], main",
	}
}

// LoadProfile returns the default profile merged with the JSON override at
// path. An empty path, an unreadable file, or a malformed document leaves the
// defaults untouched: availability wins over strictness here, so the failure
// is logged and counted rather than propagated.
func LoadProfile(path string, logger *zap.Logger) Profile {
	return MergeProfileFile(DefaultProfile(), path, logger)
}

// MergeProfileFile overlays the JSON override at path onto a copy of base.
// Only keys present in the override replace base values; the result is always
// fully populated for every recognized field.
func MergeProfileFile(base Profile, path string, logger *zap.Logger) Profile {
	merged := base.clone()
	if path == "" {
		return merged.withDefaults()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		profileOverrideFailures.Inc()
		logger.Warn("Selector profile override unreadable; using defaults",
			zap.String("path", path), zap.Error(err))
		return merged.withDefaults()
	}

	var override map[string]json.RawMessage
	if err := json.Unmarshal(raw, &override); err != nil {
		profileOverrideFailures.Inc()
		logger.Warn("Selector profile override malformed; using defaults",
			zap.String("path", path), zap.Error(err))
		return merged.withDefaults()
	}

	for key, value := range override {
		if err := merged.setField(key, value); err != nil {
			profileOverrideFailures.Inc()
			logger.Warn("Selector profile override key ignored",
				zap.String("path", path), zap.String("key", key), zap.Error(err))
		}
	}
	return merged.withDefaults()
}

func (p Profile) clone() Profile {
	p.Captcha = append([]string(nil), p.Captcha...)
	return p
}

// withDefaults backfills any empty field from the built-in profile so a
// recognized field is never left undefined.
func (p Profile) withDefaults() Profile {
	def := DefaultProfile()
	if p.Card == "" {
		p.Card = def.Card
	}
	if p.Title == "" {
		p.Title = def.Title
	}
	if p.Price == "" {
		p.Price = def.Price
	}
	if p.Address == "" {
		p.Address = def.Address
	}
	if p.Link == "" {
		p.Link = def.Link
	}
	if p.Summary == "" {
		p.Summary = def.Summary
	}
	if p.Features == "" {
		p.Features = def.Features
	}
	if p.Image == "" {
		p.Image = def.Image
	}
	if len(p.Captcha) == 0 {
		p.Captcha = append([]string(nil), def.Captcha...)
	}
	if p.ResultsContainer == "" {
		p.ResultsContainer = def.ResultsContainer
	}
	return p
}

func (p *Profile) setField(key string, value json.RawMessage) error {
	switch key {
	case "captcha":
		var selectors []string
		if err := json.Unmarshal(value, &selectors); err != nil {
			return err
		}
		if len(selectors) > 0 {
			p.Captcha = selectors
		}
		return nil
	case "card":
		return unmarshalSelector(value, &p.Card)
	case "title":
		return unmarshalSelector(value, &p.Title)
	case "price":
		return unmarshalSelector(value, &p.Price)
	case "address":
		return unmarshalSelector(value, &p.Address)
	case "link":
		return unmarshalSelector(value, &p.Link)
	case "summary":
		return unmarshalSelector(value, &p.Summary)
	case "features":
		return unmarshalSelector(value, &p.Features)
	case "image":
		return unmarshalSelector(value, &p.Image)
	case "results_container":
		return unmarshalSelector(value, &p.ResultsContainer)
	default:
		// Unknown keys are ignored so profiles stay forward compatible.
		return nil
	}
}

func unmarshalSelector(value json.RawMessage, dst *string) error {
	var s string
	if err := json.Unmarshal(value, &s); err != nil {
		return err
	}
	if s != "" {
		*dst = s
	}
	return nil
}
