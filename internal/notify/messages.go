package notify

import (
	"fmt"

	"github.com/shaiso/Itinera/internal/domain"
)

func startedText(stage domain.StageKind, _ domain.TripQuery) (string, string) {
	switch stage {
	case domain.StageFlights:
		return "Buscando vuelos", "Buscando vuelos disponibles..."
	case domain.StageHotels:
		return "Buscando hoteles", "Buscando hoteles disponibles..."
	case domain.StageActivities:
		return "Buscando actividades", "Buscando actividades en el destino..."
	case domain.StageEnrichment:
		return "Generando plan de viaje", "Generando información adicional del plan de viaje..."
	}
	return "Procesando", "Procesando el plan de viaje..."
}

func succeededText(stage domain.StageKind, count int, q domain.TripQuery) (string, string) {
	switch stage {
	case domain.StageFlights:
		return "Vuelos encontrados",
			fmt.Sprintf("Hemos encontrado %d opciones de vuelo entre %s y %s", count, q.Origin, q.Destination)
	case domain.StageHotels:
		return "Hoteles encontrados",
			fmt.Sprintf("Hemos encontrado %d opciones de hotel en %s", count, q.Destination)
	case domain.StageActivities:
		return "Actividades encontradas",
			fmt.Sprintf("Hemos encontrado %d actividades en %s", count, q.Destination)
	case domain.StageEnrichment:
		return "Plan de viaje generado",
			fmt.Sprintf("Se ha generado un plan de viaje para %s con información sobre clima, lugares para visitar, gastronomía y más.", q.Destination)
	}
	return "Paso completado", fmt.Sprintf("Se encontraron %d resultados.", count)
}

func emptyText(stage domain.StageKind) (string, string) {
	switch stage {
	case domain.StageFlights:
		return "No se encontraron vuelos", "Intente con diferentes fechas o destinos"
	case domain.StageHotels:
		return "No se encontraron hoteles", "Intente con un destino o fechas diferentes"
	case domain.StageActivities:
		return "No se encontraron actividades", "Intente con un destino diferente"
	case domain.StageEnrichment:
		return "No se pudo generar el plan de viaje", "Intente con un destino diferente"
	}
	return "Sin resultados", "Intente con otros datos"
}

func failedText(stage domain.StageKind, kind domain.FailureKind) (string, string) {
	switch kind {
	case domain.FailureValidation:
		return "Información incompleta", incompleteText(stage)
	case domain.FailurePersistence:
		return "Error al guardar", "No se pudo guardar el plan de viaje. Por favor, inténtelo de nuevo."
	}

	switch stage {
	case domain.StageFlights:
		return "Error", "No se pudieron buscar vuelos en este momento. Por favor, inténtelo de nuevo más tarde."
	case domain.StageHotels:
		return "Error", "No se pudieron buscar hoteles en este momento. Por favor, inténtelo de nuevo más tarde."
	case domain.StageActivities:
		return "Error", "No se pudieron buscar actividades en este momento. Por favor, inténtelo de nuevo más tarde."
	case domain.StageEnrichment:
		return "Error", "No se pudo generar el plan de viaje en este momento. Por favor, inténtelo más tarde."
	}
	return "Error", "Se produjo un error. Por favor, inténtelo de nuevo más tarde."
}

func incompleteText(stage domain.StageKind) string {
	switch stage {
	case domain.StageFlights:
		return "Por favor, complete el origen, destino y fecha de salida para buscar vuelos"
	case domain.StageHotels:
		return "Por favor, complete el destino y las fechas para buscar hoteles"
	case domain.StageActivities:
		return "Por favor, complete el destino para buscar actividades"
	case domain.StageEnrichment:
		return "Por favor, complete el destino y las fechas de viaje para generar un plan de viaje"
	}
	return "Por favor, complete los datos del viaje"
}
