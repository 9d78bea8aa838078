package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

type Profile struct {
	UUID   string `json:"uuid"`
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Bio    string `json:"bio"`
	Avatar string `json:"avatar"`
	SocialHandles
	Website     string    `json:"website"`
	IsPublished bool      `json:"isPublished"`
	QRAsset     *QRAsset  `json:"qrAsset"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// QRAsset referencia la ultima imagen QR generada para un perfil.
type QRAsset struct {
	Ref           string    `json:"ref"`
	Key           string    `json:"key,omitempty"`
	Payload       string    `json:"payload"`
	Format        string    `json:"format"`
	Size          int       `json:"size"`
	RecoveryLevel string    `json:"recoveryLevel"`
	Version       int       `json:"version"`
	GeneratedAt   time.Time `json:"generatedAt"`
}

const (
	maxNameLength  = 100
	maxBioLength   = 500
	maxValueLength = 512
)

// ProfilePatch describe una actualizacion parcial; los campos nil no se tocan.
type ProfilePatch struct {
	UUID        *string
	Name        *string
	Bio         *string
	Avatar      *string
	Socials     map[Platform]string
	Website     *string
	IsPublished *bool
	QRAsset     *QRAsset

	// ExpectQRVersion, si no es nil, exige que la version del QR guardado
	// siga siendo esa al aplicar el patch. 0 significa sin QR.
	ExpectQRVersion *int
}

// Validate comprueba el patch contra el perfil destino.
func (p ProfilePatch) Validate(targetUUID string) error {
	if p.UUID != nil && *p.UUID != targetUUID {
		return fmt.Errorf("%w: uuid is immutable", ErrValidation)
	}
	if err := checkLength("name", p.Name, maxNameLength); err != nil {
		return err
	}
	if err := checkLength("bio", p.Bio, maxBioLength); err != nil {
		return err
	}
	if err := checkLength("avatar", p.Avatar, maxValueLength); err != nil {
		return err
	}
	if err := checkLength("website", p.Website, maxValueLength); err != nil {
		return err
	}
	for platform, value := range p.Socials {
		if _, ok := ParsePlatform(string(platform)); !ok {
			return fmt.Errorf("%w: unknown platform %q", ErrValidation, platform)
		}
		v := value
		if err := checkLength(string(platform), &v, maxValueLength); err != nil {
			return err
		}
	}
	return nil
}

// Apply copia sobre el perfil los campos presentes en el patch.
// El uuid nunca se modifica.
func (p ProfilePatch) Apply(profile *Profile) {
	if p.Name != nil {
		profile.Name = *p.Name
	}
	if p.Bio != nil {
		profile.Bio = *p.Bio
	}
	if p.Avatar != nil {
		profile.Avatar = *p.Avatar
	}
	for platform, value := range p.Socials {
		profile.SocialHandles.Set(platform, value)
	}
	if p.Website != nil {
		profile.Website = *p.Website
	}
	if p.IsPublished != nil {
		profile.IsPublished = *p.IsPublished
	}
	if p.QRAsset != nil {
		asset := *p.QRAsset
		profile.QRAsset = &asset
	}
}

// CheckPrecondition devuelve ErrConflict si el perfil ya no esta en el
// estado que el patch espera.
func (p ProfilePatch) CheckPrecondition(current Profile) error {
	if p.ExpectQRVersion == nil {
		return nil
	}
	version := 0
	if current.QRAsset != nil {
		version = current.QRAsset.Version
	}
	if version != *p.ExpectQRVersion {
		return fmt.Errorf("%w: qr version is %d, expected %d", ErrConflict, version, *p.ExpectQRVersion)
	}
	return nil
}

func checkLength(field string, value *string, max int) error {
	if value == nil {
		return nil
	}
	if utf8.RuneCountInString(*value) > max {
		return fmt.Errorf("%w: %s exceeds %d characters", ErrValidation, field, max)
	}
	return nil
}

// ParseProfilePatch construye un patch desde un objeto JSON del propietario.
// Rechaza cualquier campo que no sea de presentacion, red social o publicacion.
func ParseProfilePatch(raw map[string]json.RawMessage) (ProfilePatch, error) {
	var patch ProfilePatch
	unknown := make([]string, 0)

	for key, value := range raw {
		if platform, ok := ParsePlatform(key); ok {
			s, err := decodeOptionalString(key, value)
			if err != nil {
				return ProfilePatch{}, err
			}
			if patch.Socials == nil {
				patch.Socials = make(map[Platform]string)
			}
			patch.Socials[platform] = *s
			continue
		}

		var err error
		switch key {
		case "uuid":
			patch.UUID, err = decodeOptionalString(key, value)
		case "name":
			patch.Name, err = decodeOptionalString(key, value)
		case "bio":
			patch.Bio, err = decodeOptionalString(key, value)
		case "avatar":
			patch.Avatar, err = decodeOptionalString(key, value)
		case "website":
			patch.Website, err = decodeOptionalString(key, value)
		case "isPublished":
			var b bool
			if isNull(value) {
				return ProfilePatch{}, fmt.Errorf("%w: isPublished must be a boolean", ErrValidation)
			}
			if err := json.Unmarshal(value, &b); err != nil {
				return ProfilePatch{}, fmt.Errorf("%w: isPublished must be a boolean", ErrValidation)
			}
			patch.IsPublished = &b
		default:
			unknown = append(unknown, key)
		}
		if err != nil {
			return ProfilePatch{}, err
		}
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)
		return ProfilePatch{}, fmt.Errorf("%w: unknown or read-only fields: %s", ErrValidation, strings.Join(unknown, ", "))
	}
	return patch, nil
}

// decodeOptionalString interpreta null como borrado del campo.
func decodeOptionalString(field string, value json.RawMessage) (*string, error) {
	s := ""
	if isNull(value) {
		return &s, nil
	}
	if err := json.Unmarshal(value, &s); err != nil {
		return nil, fmt.Errorf("%w: %s must be a string", ErrValidation, field)
	}
	s = strings.TrimSpace(s)
	return &s, nil
}

func isNull(value json.RawMessage) bool {
	return len(value) == 0 || bytes.Equal(bytes.TrimSpace(value), []byte("null"))
}
