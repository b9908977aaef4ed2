// Package refdata loads the reference tables (regions, categories) from
// their source files: the national administrative-district GeoJSON and the
// registry category-code CSV.
package refdata

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/openinsight-kr/market-pulse/internal/model"
)

// seoulProvince filters the national GeoJSON down to Seoul.
const seoulProvince = "서울특별시"

// admCodeLen is the prefix of the MOIS adm_cd2 code the registry API
// understands (the full code is usually 10 digits).
const admCodeLen = 8

type geoFeature struct {
	Properties struct {
		AdmCd2 string `json:"adm_cd2"`
		AdmNm  string `json:"adm_nm"`
	} `json:"properties"`
}

type geoFeatureCollection struct {
	Features []geoFeature `json:"features"`
}

// ParseRegions reads an administrative-district GeoJSON and returns the
// Seoul regions it contains. Features without a usable code or a
// three-part name (city, district, town) are skipped.
func ParseRegions(r io.Reader) ([]model.Region, error) {
	var collection geoFeatureCollection
	if err := json.NewDecoder(r).Decode(&collection); err != nil {
		return nil, fmt.Errorf("failed to parse GeoJSON: %w", err)
	}

	var regions []model.Region
	for _, feature := range collection.Features {
		fullCode := feature.Properties.AdmCd2
		fullName := feature.Properties.AdmNm

		if !strings.Contains(fullName, seoulProvince) {
			continue
		}
		if len(fullCode) < admCodeLen {
			continue
		}

		parts := strings.Fields(fullName)
		if len(parts) < 3 {
			continue
		}

		regions = append(regions, model.Region{
			AdmCode:  fullCode[:admCodeLen],
			Province: seoulProvince,
			District: parts[1],
			Town:     parts[2],
		})
	}

	if len(regions) == 0 {
		return nil, fmt.Errorf("no Seoul regions found in GeoJSON")
	}
	return regions, nil
}

// CSV header names of the registry small-classification export.
const (
	csvColName = "소분류명"
	csvColCode = "소분류코드"
)

// LoadCategoryCodes reads the category-code CSV and returns categories
// with their registry classification codes.
func LoadCategoryCodes(r io.Reader) ([]model.Category, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	nameCol, codeCol := -1, -1
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case csvColName:
			nameCol = i
		case csvColCode:
			codeCol = i
		}
	}
	if nameCol < 0 || codeCol < 0 {
		return nil, fmt.Errorf("CSV missing %q or %q column", csvColName, csvColCode)
	}

	var categories []model.Category
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}
		if len(record) <= nameCol || len(record) <= codeCol {
			continue
		}

		name := strings.TrimSpace(record[nameCol])
		if name == "" {
			continue
		}
		categories = append(categories, model.Category{
			Name:         name,
			ExternalCode: strings.TrimSpace(record[codeCol]),
		})
	}

	return categories, nil
}

// DefaultCategories returns the built-in analysis categories used when no
// category CSV is supplied.
func DefaultCategories() []model.Category {
	return []model.Category{
		{Name: "카페", ExternalCode: "I21201"},
		{Name: "미용실", ExternalCode: "S20701"},
		{Name: "네일숍", ExternalCode: "S20703"},
	}
}
