package advertisement

// ChannelSize 频道规模
type ChannelSize string

const (
	SizeSmall  ChannelSize = "small"
	SizeMedium ChannelSize = "medium"
	SizeLarge  ChannelSize = "large"
)

const (
	smallChannelLimit  = 5000
	mediumChannelLimit = 20000

	minRecommendations = 3
)

// Advertisement is a catalog entry. An empty Sizes list means the ad is
// offered to every channel but is not tagged for any specific size.
type Advertisement struct {
	ID             string        `json:"ad_id"`
	Title          string        `json:"title"`
	Text           string        `json:"ad_text"`
	BannerImageURL string        `json:"banner_image_url"`
	Pricing        float64       `json:"pricing"`
	Category       string        `json:"category"`
	SuitableFor    string        `json:"suitable_for"`
	Sizes          []ChannelSize `json:"-"`
}

func (a Advertisement) suits(size ChannelSize) bool {
	for _, s := range a.Sizes {
		if s == size {
			return true
		}
	}
	return false
}

// DefaultCatalog 默认广告目录
func DefaultCatalog() []Advertisement {
	return []Advertisement{
		{
			ID:             "ad_001",
			Title:          "프리미엄 펫 사료 프로모션",
			Text:           "🐾 최고급 펫 사료를 특가로 만나보세요! 지금 구매하면 20% 할인 + 무료배송! #펫사료 #반려동물",
			BannerImageURL: "https://example.com/banners/pet_food_banner.jpg",
			Category:       "펫 케어",
			SuitableFor:    "소형~중형 채널",
			Sizes:          []ChannelSize{SizeSmall, SizeMedium},
		},
		{
			ID:             "ad_002",
			Title:          "반려동물 의류 신상품",
			Text:           "✨ 귀여운 반려동물 의류 신상품 출시! 따뜻한 겨울을 위한 필수 아이템 🧥 #펫패션 #반려동물의류",
			BannerImageURL: "https://example.com/banners/pet_clothing_banner.jpg",
			Category:       "펫 패션",
			SuitableFor:    "소형~중형 채널",
			Sizes:          []ChannelSize{SizeSmall, SizeMedium},
		},
		{
			ID:             "ad_003",
			Title:          "펫 호텔 예약 서비스",
			Text:           "🏨 여행 가실 때 걱정 없이! 프리미엄 펫 호텔에서 반려동물을 안전하게 돌봐드립니다. 지금 예약하세요! #펫호텔 #펫케어",
			BannerImageURL: "https://example.com/banners/pet_hotel_banner.jpg",
			Category:       "펫 서비스",
			SuitableFor:    "중형~대형 채널",
			Sizes:          []ChannelSize{SizeMedium, SizeLarge},
		},
		{
			ID:             "ad_004",
			Title:          "반려동물 건강검진 이벤트",
			Text:           "🏥 반려동물 건강검진 특가 이벤트! 정기 검진으로 건강한 반려생활을 시작하세요 💚 #펫건강 #반려동물검진",
			BannerImageURL: "https://example.com/banners/pet_checkup_banner.jpg",
			Category:       "펫 케어",
			SuitableFor:    "모든 채널",
		},
		{
			ID:             "ad_005",
			Title:          "펫 용품 할인 이벤트",
			Text:           "🛍️ 반려동물 필수 용품 대할인! 장난감, 산책용품, 급여기 등 다양한 상품을 특가로! #펫용품 #반려동물용품",
			BannerImageURL: "https://example.com/banners/pet_supplies_banner.jpg",
			Category:       "펫 용품",
			SuitableFor:    "소형 채널",
			Sizes:          []ChannelSize{SizeSmall},
		},
	}
}

// Recommend filters the catalog by channel size and prices every ad.
// Small channels get everything, medium channels lose small-only ads and
// large channels only see large-tagged ads. At least three ads are always
// returned.
func Recommend(catalog []Advertisement, followers int, price float64) []Advertisement {
	var recommended []Advertisement
	switch {
	case followers < smallChannelLimit:
		recommended = append(recommended, catalog...)
	case followers < mediumChannelLimit:
		for _, ad := range catalog {
			if !ad.suits(SizeSmall) {
				recommended = append(recommended, ad)
			}
		}
	default:
		for _, ad := range catalog {
			if ad.suits(SizeLarge) {
				recommended = append(recommended, ad)
			}
		}
	}

	if len(recommended) < minRecommendations {
		n := minRecommendations
		if n > len(catalog) {
			n = len(catalog)
		}
		recommended = append([]Advertisement(nil), catalog[:n]...)
	}

	for i := range recommended {
		recommended[i].Pricing = price
	}
	return recommended
}
