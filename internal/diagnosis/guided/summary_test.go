package guided

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummary(t *testing.T) {
	t.Run("full form", func(t *testing.T) {
		f := Form{
			Appliance: "washer",
			Sounds:    []string{"쿵쿵", "덜컹"},
			Pattern:   PatternIntermittent,
			Intensity: "강함",
			Vibration: true,
			When:      "탈수할 때",
			ErrorCode: "UE",
			Extra:     "세탁물이 한쪽으로 쏠림",
		}

		got, err := f.Summary()
		require.NoError(t, err)

		want := "[가이드 진단 요청]\n" +
			"- 가전제품: 세탁기/건조기\n" +
			"- 소음 종류: 쿵쿵, 덜컹\n" +
			"- 소음 패턴: 간헐적 / 강도: 강함 / 진동: 있음\n" +
			"- 발생 시점: 탈수할 때\n" +
			"- 에러 코드: UE\n" +
			"- 기타 증상: 세탁물이 한쪽으로 쏠림"
		assert.Equal(t, want, got)
	})

	t.Run("defaults", func(t *testing.T) {
		got, err := Form{Appliance: "robot"}.Summary()
		require.NoError(t, err)

		assert.Contains(t, got, "- 가전제품: 기타\n")
		assert.Contains(t, got, "- 소음 종류: 정보 없음\n")
		assert.Contains(t, got, "- 소음 패턴: 연속적 / 강도: 보통 / 진동: 없음\n")
		assert.Contains(t, got, "- 에러 코드: 없음\n")
	})

	t.Run("appliance required", func(t *testing.T) {
		_, err := Form{}.Summary()
		assert.ErrorIs(t, err, ErrApplianceRequired)
	})
}

func TestCatalogIsCopy(t *testing.T) {
	c := Catalog()
	require.Len(t, c, 6)
	c[0].Sounds[0] = "changed"

	assert.Equal(t, "틱틱", Catalog()[0].Sounds[0])
}
