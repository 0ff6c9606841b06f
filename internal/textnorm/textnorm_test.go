package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Run("Should lower-case collapse spaces and strip punctuation", func(t *testing.T) {
		assert.Equal(t, "xin chào bạn", Normalize("  Xin   CHÀO, bạn!  "))
	})

	t.Run("Should compose decomposed diacritics", func(t *testing.T) {
		decomposed := "luơ̆ng"
		assert.Equal(t, NFC(decomposed), Lower(decomposed))
	})
}

func TestFold(t *testing.T) {
	t.Run("Should remove Vietnamese diacritics", func(t *testing.T) {
		assert.Equal(t, "luong thuong", FoldLower("Lương Thưởng"))
		assert.Equal(t, "dao tao", FoldLower("Đào tạo"))
		assert.Equal(t, "bao hiem", Fold("bảo hiểm"))
	})
}

func TestHasPhrase(t *testing.T) {
	t.Run("Should match only on word boundaries", func(t *testing.T) {
		assert.True(t, HasPhrase("hi there", "hi"))
		assert.True(t, HasPhrase("chào bạn, hôm nay", "chào bạn"))
		assert.False(t, HasPhrase("chi tiết hơn", "hi"))
		assert.False(t, HasPhrase("anything", ""))
	})
}

func TestContainsAny(t *testing.T) {
	t.Run("Should ignore empty needles", func(t *testing.T) {
		assert.False(t, ContainsAny("abc", []string{""}))
		assert.True(t, ContainsAny("nghỉ phép năm", []string{"lương", "nghỉ phép"}))
	})
}
