package domain

// Platform enumera las redes sociales soportadas por un perfil.
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformTwitter   Platform = "twitter"
	PlatformTikTok    Platform = "tiktok"
	PlatformYouTube   Platform = "youtube"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformFacebook  Platform = "facebook"
)

var platforms = []Platform{
	PlatformInstagram,
	PlatformTwitter,
	PlatformTikTok,
	PlatformYouTube,
	PlatformLinkedIn,
	PlatformFacebook,
}

// Platforms devuelve todas las plataformas en orden estable.
func Platforms() []Platform {
	out := make([]Platform, len(platforms))
	copy(out, platforms)
	return out
}

// ParsePlatform convierte una clave externa en Platform.
func ParsePlatform(key string) (Platform, bool) {
	for _, p := range platforms {
		if string(p) == key {
			return p, true
		}
	}
	return "", false
}

// SocialHandles guarda el valor crudo (handle o URL) de cada plataforma.
type SocialHandles struct {
	Instagram string `json:"instagram"`
	Twitter   string `json:"twitter"`
	TikTok    string `json:"tiktok"`
	YouTube   string `json:"youtube"`
	LinkedIn  string `json:"linkedin"`
	Facebook  string `json:"facebook"`
}

func (s SocialHandles) Get(p Platform) string {
	switch p {
	case PlatformInstagram:
		return s.Instagram
	case PlatformTwitter:
		return s.Twitter
	case PlatformTikTok:
		return s.TikTok
	case PlatformYouTube:
		return s.YouTube
	case PlatformLinkedIn:
		return s.LinkedIn
	case PlatformFacebook:
		return s.Facebook
	}
	return ""
}

func (s *SocialHandles) Set(p Platform, value string) {
	switch p {
	case PlatformInstagram:
		s.Instagram = value
	case PlatformTwitter:
		s.Twitter = value
	case PlatformTikTok:
		s.TikTok = value
	case PlatformYouTube:
		s.YouTube = value
	case PlatformLinkedIn:
		s.LinkedIn = value
	case PlatformFacebook:
		s.Facebook = value
	}
}
