package service

import "strings"

// LinkBuilder arma las URLs publicas a partir de la direccion del despliegue.
type LinkBuilder struct {
	baseURL string
}

func NewLinkBuilder(baseURL string) LinkBuilder {
	return LinkBuilder{baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/")}
}

func (b LinkBuilder) BaseURL() string {
	return b.baseURL
}

// EditURL es la pagina donde el propietario edita su perfil.
func (b LinkBuilder) EditURL(uuid string) string {
	return b.baseURL + "/edit/" + uuid
}

// ViewURL es la URL que se codifica en el QR.
func (b LinkBuilder) ViewURL(uuid string) string {
	return b.baseURL + "/scan/" + uuid
}
