package push

import (
	"errors"
	"fmt"
)

// Kind classifica uma falha de entrega
type Kind int

const (
	// KindTransient: rede/provedor indisponível. Nada muda no endpoint e o
	// próximo tick reconsidera o evento.
	KindTransient Kind = iota
	// KindEndpointInvalid: token não registrado, inválido ou de outro sender.
	KindEndpointInvalid
	// KindRateLimited: cota do provedor excedida.
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindEndpointInvalid:
		return "endpoint_invalid"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "transient"
	}
}

// DeliveryError é o erro classificado produzido pelo adaptador do provedor
type DeliveryError struct {
	Kind Kind
	Code string
	Err  error
}

func (e *DeliveryError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("push %s (%s)", e.Kind, e.Code)
	}
	return fmt.Sprintf("push %s (%s): %v", e.Kind, e.Code, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// ErrEmptyEndpoint é retornado quando não há token para enviar
var ErrEmptyEndpoint = &DeliveryError{Kind: KindEndpointInvalid, Code: "empty-token"}

// Classify extrai o Kind de qualquer erro. Erros não classificados são transitórios.
func Classify(err error) Kind {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindTransient
}

// IsEndpointInvalid indica se o endpoint deve ser removido
func IsEndpointInvalid(err error) bool {
	return err != nil && Classify(err) == KindEndpointInvalid
}

func asDeliveryError(err error) *DeliveryError {
	if err == nil {
		return nil
	}
	var de *DeliveryError
	if errors.As(err, &de) {
		return de
	}
	return &DeliveryError{Kind: KindTransient, Code: "unknown", Err: err}
}
