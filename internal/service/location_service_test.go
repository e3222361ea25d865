package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyrx/stargeo_server/internal/model"
	"github.com/hyrx/stargeo_server/internal/pkg/geocode"
	"github.com/hyrx/stargeo_server/internal/repository"
	"github.com/hyrx/stargeo_server/internal/testutil"
)

func geocodeServer(t *testing.T, calls *int32, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		handler(w, r)
	}))
}

func TestLocationService_Resolve(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	var calls int32
	server := geocodeServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"OK","results":[{"address_components":[
			{"long_name":"Japan","short_name":"JP","types":["country","political"]}
		]}]}`)
	})
	defer server.Close()

	svc := NewLocationService(repository.NewLocationCacheRepository(db), geocode.NewClient(server.URL, ""))

	info, err := svc.Resolve(context.Background(), "Tokyo, Japan")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "JP", info.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// 第二次命中缓存，不再请求地理 API
	info, err = svc.Resolve(context.Background(), "Tokyo, Japan")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "JP", info.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestLocationService_Resolve_CacheKeyNormalized(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	var calls int32
	server := geocodeServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"OK","results":[{"address_components":[
			{"long_name":"Germany","short_name":"DE","types":["country","political"]}
		]}]}`)
	})
	defer server.Close()

	svc := NewLocationService(repository.NewLocationCacheRepository(db), geocode.NewClient(server.URL, ""))

	_, err := svc.Resolve(context.Background(), "Berlin, Germany")
	require.NoError(t, err)

	// 大小写和首尾空白不同的同一文本共享缓存
	info, err := svc.Resolve(context.Background(), "  BERLIN, GERMANY ")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "DE", info.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestLocationService_Resolve_Empty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	var calls int32
	server := geocodeServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"OK","results":[]}`)
	})
	defer server.Close()

	svc := NewLocationService(repository.NewLocationCacheRepository(db), geocode.NewClient(server.URL, ""))

	info, err := svc.Resolve(context.Background(), "   ")
	require.NoError(t, err)
	assert.Nil(t, info)
	// 空文本直接未知，不该发请求
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestLocationService_Resolve_NegativeCached(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	var calls int32
	server := geocodeServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"ZERO_RESULTS","results":[]}`)
	})
	defer server.Close()

	cacheRepo := repository.NewLocationCacheRepository(db)
	svc := NewLocationService(cacheRepo, geocode.NewClient(server.URL, ""))

	info, err := svc.Resolve(context.Background(), "The Internet")
	require.NoError(t, err)
	assert.Nil(t, info)

	// 负结果也落了缓存
	entry, err := cacheRepo.Get("the internet")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Nil(t, entry.CountryCode)

	// 再次解析命中负缓存，不再请求
	info, err = svc.Resolve(context.Background(), "The Internet")
	require.NoError(t, err)
	assert.Nil(t, info)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestLocationService_Resolve_TransportErrorNotCached(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	var calls int32
	server := geocodeServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	defer server.Close()

	cacheRepo := repository.NewLocationCacheRepository(db)
	svc := NewLocationService(cacheRepo, geocode.NewClient(server.URL, ""))

	// 传输错误降级为未知，但不让任务失败
	info, err := svc.Resolve(context.Background(), "Paris, France")
	require.NoError(t, err)
	assert.Nil(t, info)

	// 故障不落缓存，之后可以重试
	entry, err := cacheRepo.Get("paris, france")
	require.NoError(t, err)
	assert.Nil(t, entry)

	_, err = svc.Resolve(context.Background(), "Paris, France")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestLocationService_Resolve_PreSeededCache(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	cacheRepo := repository.NewLocationCacheRepository(db)
	code, name := "CN", "China"
	require.NoError(t, cacheRepo.Put(&model.LocationCache{
		LocationText: "shanghai",
		CountryCode:  &code,
		CountryName:  &name,
	}))

	// geocoder 指向一个已关闭的地址，命中缓存就不会访问它
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	svc := NewLocationService(cacheRepo, geocode.NewClient(server.URL, ""))

	info, err := svc.Resolve(context.Background(), "Shanghai")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "CN", info.Code)
	assert.Equal(t, "China", info.Name)
}
