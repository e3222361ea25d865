package service

import (
	"context"
	"log"
	"strings"

	"github.com/hyrx/stargeo_server/internal/model"
	"github.com/hyrx/stargeo_server/internal/pkg/geocode"
	"github.com/hyrx/stargeo_server/internal/repository"
)

// LocationService 把自由文本位置解析成国家，缓存优先。
type LocationService struct {
	cacheRepo *repository.LocationCacheRepository
	geocoder  *geocode.Client
}

func NewLocationService(cacheRepo *repository.LocationCacheRepository, geocoder *geocode.Client) *LocationService {
	return &LocationService{
		cacheRepo: cacheRepo,
		geocoder:  geocoder,
	}
}

// Resolve 解析位置文本。返回 (nil, nil) 表示无法解析。
// 缓存命中（包括负缓存）不会触发地理 API 调用；
// 地理 API 的传输错误不落缓存，留给后续重试；
// error 只在持久层出问题时返回，按约定会让整个任务失败。
func (s *LocationService) Resolve(ctx context.Context, locationText string) (*geocode.CountryInfo, error) {
	if strings.TrimSpace(locationText) == "" {
		return nil, nil
	}

	normalized := strings.ToLower(strings.TrimSpace(locationText))

	cached, err := s.cacheRepo.Get(normalized)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		if cached.CountryCode == nil {
			return nil, nil // 确认过无法解析
		}
		return &geocode.CountryInfo{
			Code: *cached.CountryCode,
			Name: *cached.CountryName,
		}, nil
	}

	// 用原始文本查询，归一化只用于缓存 key
	country, err := s.geocoder.Lookup(ctx, locationText)
	if err != nil {
		log.Printf("Geocoding error for %q: %v", locationText, err)
		return nil, nil
	}

	entry := &model.LocationCache{LocationText: normalized}
	if country != nil {
		entry.CountryCode = &country.Code
		entry.CountryName = &country.Name
	}
	if err := s.cacheRepo.Put(entry); err != nil {
		return nil, err
	}

	return country, nil
}
