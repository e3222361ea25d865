package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyrx/stargeo_server/internal/model"
	"github.com/hyrx/stargeo_server/internal/testutil"
)

func TestLocationCacheRepository_PutAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewLocationCacheRepository(db)

	code := "JP"
	name := "Japan"
	err := repo.Put(&model.LocationCache{
		LocationText: "tokyo, japan",
		CountryCode:  &code,
		CountryName:  &name,
	})
	require.NoError(t, err)

	entry, err := repo.Get("tokyo, japan")
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.NotNil(t, entry.CountryCode)
	assert.Equal(t, "JP", *entry.CountryCode)
	assert.Equal(t, "Japan", *entry.CountryName)
}

func TestLocationCacheRepository_Get_Miss(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewLocationCacheRepository(db)

	entry, err := repo.Get("never seen")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestLocationCacheRepository_NegativeEntry(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewLocationCacheRepository(db)

	// 确认无法解析的文本也要缓存，country 字段为空
	err := repo.Put(&model.LocationCache{LocationText: "the moon"})
	require.NoError(t, err)

	entry, err := repo.Get("the moon")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Nil(t, entry.CountryCode)
	assert.Nil(t, entry.CountryName)
}

func TestLocationCacheRepository_Put_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewLocationCacheRepository(db)

	code1, name1 := "US", "United States"
	require.NoError(t, repo.Put(&model.LocationCache{
		LocationText: "san francisco",
		CountryCode:  &code1,
		CountryName:  &name1,
	}))

	// 并发任务重复写同一个 key：不报错，首写生效
	code2, name2 := "CA", "Canada"
	require.NoError(t, repo.Put(&model.LocationCache{
		LocationText: "san francisco",
		CountryCode:  &code2,
		CountryName:  &name2,
	}))

	entry, err := repo.Get("san francisco")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "US", *entry.CountryCode)

	var count int64
	require.NoError(t, db.Model(&model.LocationCache{}).
		Where("location_text = ?", "san francisco").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
