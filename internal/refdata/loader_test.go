package refdata

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleGeoJSON = `{
	"type": "FeatureCollection",
	"features": [
		{"properties": {"adm_cd2": "1168064000", "adm_nm": "서울특별시 강남구 역삼1동"}},
		{"properties": {"adm_cd2": "1111051500", "adm_nm": "서울특별시 종로구 청운효자동"}},
		{"properties": {"adm_cd2": "2611051000", "adm_nm": "부산광역시 중구 중앙동"}},
		{"properties": {"adm_cd2": "11", "adm_nm": "서울특별시 강남구 대치동"}},
		{"properties": {"adm_cd2": "1168066000", "adm_nm": "서울특별시"}}
	]
}`

func TestParseRegions(t *testing.T) {
	regions, err := ParseRegions(strings.NewReader(sampleGeoJSON))
	require.NoError(t, err)
	require.Len(t, regions, 2, "non-Seoul, short-code, and short-name features are skipped")

	assert.Equal(t, "11680640", regions[0].AdmCode, "adm code truncated to the registry prefix")
	assert.Equal(t, "서울특별시", regions[0].Province)
	assert.Equal(t, "강남구", regions[0].District)
	assert.Equal(t, "역삼1동", regions[0].Town)

	assert.Equal(t, "11110515", regions[1].AdmCode)
	assert.Equal(t, "종로구", regions[1].District)
}

func TestParseRegionsNoSeoulFeatures(t *testing.T) {
	input := `{"features": [{"properties": {"adm_cd2": "2611051000", "adm_nm": "부산광역시 중구 중앙동"}}]}`
	_, err := ParseRegions(strings.NewReader(input))
	require.Error(t, err)
}

func TestParseRegionsMalformedJSON(t *testing.T) {
	_, err := ParseRegions(strings.NewReader("not json"))
	require.Error(t, err)
}

func TestLoadCategoryCodes(t *testing.T) {
	input := "대분류명,소분류명,소분류코드\n" +
		"음식,카페,I21201\n" +
		"서비스,미용실,S20701\n" +
		"서비스, ,S20703\n"

	categories, err := LoadCategoryCodes(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, categories, 2, "blank names are skipped")

	assert.Equal(t, "카페", categories[0].Name)
	assert.Equal(t, "I21201", categories[0].ExternalCode)
	assert.Equal(t, "미용실", categories[1].Name)
	assert.Equal(t, "S20701", categories[1].ExternalCode)
}

func TestLoadCategoryCodesMissingColumns(t *testing.T) {
	input := "이름,코드\n카페,I21201\n"
	_, err := LoadCategoryCodes(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "소분류명")
}

func TestDefaultCategories(t *testing.T) {
	categories := DefaultCategories()
	require.NotEmpty(t, categories)
	for _, c := range categories {
		assert.NotEmpty(t, c.Name)
		assert.NotEmpty(t, c.ExternalCode)
	}
}
