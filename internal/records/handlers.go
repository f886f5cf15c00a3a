package records

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/LPredmore/lh-ehr/internal/identity"
	"github.com/LPredmore/lh-ehr/internal/policy"
	"github.com/LPredmore/lh-ehr/pkg/logger"
	"github.com/LPredmore/lh-ehr/pkg/types"
)

// Handler exposes the records service over HTTP. Every route runs behind the
// identity middleware, so the principal is always present in the context.
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates the HTTP handler for the records service.
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

// RegisterRoutes configures all records routes on the router.
func (h *Handler) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix("/api/v1").Subrouter()

	// User directory
	api.HandleFunc("/users", h.createUserHandler).Methods("POST")
	api.HandleFunc("/users", h.listUsersHandler).Methods("GET")
	api.HandleFunc("/users/{id}", h.getUserHandler).Methods("GET")
	api.HandleFunc("/users/{id}", h.updateUserHandler).Methods("PUT")
	api.HandleFunc("/users/{id}", h.deleteUserHandler).Methods("DELETE")

	// Patients
	api.HandleFunc("/patients", h.createPatientHandler).Methods("POST")
	api.HandleFunc("/patients", h.listPatientsHandler).Methods("GET")
	api.HandleFunc("/patients/{id}", h.getPatientHandler).Methods("GET")
	api.HandleFunc("/patients/{id}", h.updatePatientHandler).Methods("PUT")
	api.HandleFunc("/patients/{id}", h.deletePatientHandler).Methods("DELETE")
	api.HandleFunc("/patients/{id}/summary", h.getPatientSummaryHandler).Methods("GET")

	// Per-patient clinical collections
	api.HandleFunc("/patients/{id}/notes", h.listClinicalNotesHandler).Methods("GET")
	api.HandleFunc("/patients/{id}/care-plans", h.listCarePlansHandler).Methods("GET")
	api.HandleFunc("/patients/{id}/medications", h.listMedicationsHandler).Methods("GET")
	api.HandleFunc("/patients/{id}/assessments", h.listAssessmentsHandler).Methods("GET")
	api.HandleFunc("/patients/{id}/audit", h.listPatientAuditHandler).Methods("GET")

	// Appointments
	api.HandleFunc("/appointments", h.createAppointmentHandler).Methods("POST")
	api.HandleFunc("/appointments", h.listAppointmentsHandler).Methods("GET")
	api.HandleFunc("/appointments/{id}", h.getAppointmentHandler).Methods("GET")
	api.HandleFunc("/appointments/{id}", h.updateAppointmentHandler).Methods("PUT")
	api.HandleFunc("/appointments/{id}", h.deleteAppointmentHandler).Methods("DELETE")
	api.HandleFunc("/appointments/{id}/follow-up", h.createFollowUpHandler).Methods("POST")

	// Clinical notes
	api.HandleFunc("/notes", h.createClinicalNoteHandler).Methods("POST")
	api.HandleFunc("/notes/{id}", h.getClinicalNoteHandler).Methods("GET")
	api.HandleFunc("/notes/{id}", h.updateClinicalNoteHandler).Methods("PUT")
	api.HandleFunc("/notes/{id}", h.deleteClinicalNoteHandler).Methods("DELETE")
	api.HandleFunc("/notes/{id}/sign", h.signClinicalNoteHandler).Methods("POST")

	// Care plans
	api.HandleFunc("/care-plans", h.createCarePlanHandler).Methods("POST")
	api.HandleFunc("/care-plans/{id}", h.getCarePlanHandler).Methods("GET")
	api.HandleFunc("/care-plans/{id}", h.updateCarePlanHandler).Methods("PUT")
	api.HandleFunc("/care-plans/{id}", h.deleteCarePlanHandler).Methods("DELETE")

	// Medications
	api.HandleFunc("/medications", h.createMedicationHandler).Methods("POST")
	api.HandleFunc("/medications/{id}", h.getMedicationHandler).Methods("GET")
	api.HandleFunc("/medications/{id}", h.updateMedicationHandler).Methods("PUT")
	api.HandleFunc("/medications/{id}", h.deleteMedicationHandler).Methods("DELETE")

	// Assessments
	api.HandleFunc("/assessments", h.createAssessmentHandler).Methods("POST")
	api.HandleFunc("/assessments/{id}", h.getAssessmentHandler).Methods("GET")
	api.HandleFunc("/assessments/{id}", h.updateAssessmentHandler).Methods("PUT")
	api.HandleFunc("/assessments/{id}", h.deleteAssessmentHandler).Methods("DELETE")

	// Audit trail
	api.HandleFunc("/audit", h.listAuditHandler).Methods("GET")

	h.logger.Info("Records routes configured")
}

// Users

func (h *Handler) createUserHandler(w http.ResponseWriter, r *http.Request) {
	var user types.User
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		h.writeError(w, r, types.NewValidationError("invalid request body", nil))
		return
	}
	created, err := h.service.CreateUser(r.Context(), principalFrom(r), &user)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) getUserHandler(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), principalFrom(r), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

func (h *Handler) listUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context(), principalFrom(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, users)
}

func (h *Handler) updateUserHandler(w http.ResponseWriter, r *http.Request) {
	var updates types.UserUpdates
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		h.writeError(w, r, types.NewValidationError("invalid request body", nil))
		return
	}
	user, err := h.service.UpdateUser(r.Context(), principalFrom(r), mux.Vars(r)["id"], &updates)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

func (h *Handler) deleteUserHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteUser(r.Context(), principalFrom(r), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Patients

func (h *Handler) createPatientHandler(w http.ResponseWriter, r *http.Request) {
	var patient types.Patient
	if err := json.NewDecoder(r.Body).Decode(&patient); err != nil {
		h.writeError(w, r, types.NewValidationError("invalid request body", nil))
		return
	}
	created, err := h.service.CreatePatient(r.Context(), principalFrom(r), &patient)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) getPatientHandler(w http.ResponseWriter, r *http.Request) {
	patient, err := h.service.GetPatient(r.Context(), principalFrom(r), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, patient)
}

func (h *Handler) listPatientsHandler(w http.ResponseWriter, r *http.Request) {
	patients, err := h.service.ListPatients(r.Context(), principalFrom(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, patients)
}

func (h *Handler) updatePatientHandler(w http.ResponseWriter, r *http.Request) {
	var updates types.PatientUpdates
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		h.writeError(w, r, types.NewValidationError("invalid request body", nil))
		return
	}
	patient, err := h.service.UpdatePatient(r.Context(), principalFrom(r), mux.Vars(r)["id"], &updates)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, patient)
}

func (h *Handler) deletePatientHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeletePatient(r.Context(), principalFrom(r), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getPatientSummaryHandler(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.GetPatientSummary(r.Context(), principalFrom(r), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// Appointments

func (h *Handler) createAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	var appt types.Appointment
	if err := json.NewDecoder(r.Body).Decode(&appt); err != nil {
		h.writeError(w, r, types.NewValidationError("invalid request body", nil))
		return
	}
	created, err := h.service.CreateAppointment(r.Context(), principalFrom(r), &appt)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) getAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	appt, err := h.service.GetAppointment(r.Context(), principalFrom(r), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, appt)
}

func (h *Handler) listAppointmentsHandler(w http.ResponseWriter, r *http.Request) {
	appts, err := h.service.ListAppointments(r.Context(), principalFrom(r), parseAppointmentFilters(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, appts)
}

func (h *Handler) updateAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	var updates types.AppointmentUpdates
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		h.writeError(w, r, types.NewValidationError("invalid request body", nil))
		return
	}
	appt, err := h.service.UpdateAppointment(r.Context(), principalFrom(r), mux.Vars(r)["id"], &updates)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, appt)
}

func (h *Handler) deleteAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteAppointment(r.Context(), principalFrom(r), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) createFollowUpHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Days int `json:"days"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, r, types.NewValidationError("invalid request body", nil))
			return
		}
	}
	followUp, err := h.service.CreateFollowUpAppointment(r.Context(), principalFrom(r), mux.Vars(r)["id"], req.Days)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, followUp)
}

// Clinical notes

func (h *Handler) createClinicalNoteHandler(w http.ResponseWriter, r *http.Request) {
	var note types.ClinicalNote
	if err := json.NewDecoder(r.Body).Decode(&note); err != nil {
		h.writeError(w, r, types.NewValidationError("invalid request body", nil))
		return
	}
	created, err := h.service.CreateClinicalNote(r.Context(), principalFrom(r), &note)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) getClinicalNoteHandler(w http.ResponseWriter, r *http.Request) {
	note, err := h.service.GetClinicalNote(r.Context(), principalFrom(r), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, note)
}

func (h *Handler) listClinicalNotesHandler(w http.ResponseWriter, r *http.Request) {
	notes, err := h.service.ListClinicalNotes(r.Context(), principalFrom(r), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, notes)
}

func (h *Handler) updateClinicalNoteHandler(w http.ResponseWriter, r *http.Request) {
	var updates types.ClinicalNoteUpdates
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		h.writeError(w, r, types.NewValidationError("invalid request body", nil))
		return
	}
	note, err := h.service.UpdateClinicalNote(r.Context(), principalFrom(r), mux.Vars(r)["id"], &updates)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, note)
}

func (h *Handler) signClinicalNoteHandler(w http.ResponseWriter, r *http.Request) {
	note, err := h.service.SignClinicalNote(r.Context(), principalFrom(r), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, note)
}

func (h *Handler) deleteClinicalNoteHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteClinicalNote(r.Context(), principalFrom(r), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Care plans

func (h *Handler) createCarePlanHandler(w http.ResponseWriter, r *http.Request) {
	var plan types.CarePlan
	if err := json.NewDecoder(r.Body).Decode(&plan); err != nil {
		h.writeError(w, r, types.NewValidationError("invalid request body", nil))
		return
	}
	created, err := h.service.CreateCarePlan(r.Context(), principalFrom(r), &plan)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) getCarePlanHandler(w http.ResponseWriter, r *http.Request) {
	plan, err := h.service.GetCarePlan(r.Context(), principalFrom(r), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, plan)
}

func (h *Handler) listCarePlansHandler(w http.ResponseWriter, r *http.Request) {
	plans, err := h.service.ListCarePlans(r.Context(), principalFrom(r), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, plans)
}

func (h *Handler) updateCarePlanHandler(w http.ResponseWriter, r *http.Request) {
	var updates types.CarePlanUpdates
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		h.writeError(w, r, types.NewValidationError("invalid request body", nil))
		return
	}
	plan, err := h.service.UpdateCarePlan(r.Context(), principalFrom(r), mux.Vars(r)["id"], &updates)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, plan)
}

func (h *Handler) deleteCarePlanHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteCarePlan(r.Context(), principalFrom(r), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Medications

func (h *Handler) createMedicationHandler(w http.ResponseWriter, r *http.Request) {
	var med types.Medication
	if err := json.NewDecoder(r.Body).Decode(&med); err != nil {
		h.writeError(w, r, types.NewValidationError("invalid request body", nil))
		return
	}
	created, err := h.service.CreateMedication(r.Context(), principalFrom(r), &med)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) getMedicationHandler(w http.ResponseWriter, r *http.Request) {
	med, err := h.service.GetMedication(r.Context(), principalFrom(r), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, med)
}

func (h *Handler) listMedicationsHandler(w http.ResponseWriter, r *http.Request) {
	meds, err := h.service.ListMedications(r.Context(), principalFrom(r), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, meds)
}

func (h *Handler) updateMedicationHandler(w http.ResponseWriter, r *http.Request) {
	var updates types.MedicationUpdates
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		h.writeError(w, r, types.NewValidationError("invalid request body", nil))
		return
	}
	med, err := h.service.UpdateMedication(r.Context(), principalFrom(r), mux.Vars(r)["id"], &updates)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, med)
}

func (h *Handler) deleteMedicationHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteMedication(r.Context(), principalFrom(r), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Assessments

func (h *Handler) createAssessmentHandler(w http.ResponseWriter, r *http.Request) {
	var assessment types.Assessment
	if err := json.NewDecoder(r.Body).Decode(&assessment); err != nil {
		h.writeError(w, r, types.NewValidationError("invalid request body", nil))
		return
	}
	created, err := h.service.CreateAssessment(r.Context(), principalFrom(r), &assessment)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) getAssessmentHandler(w http.ResponseWriter, r *http.Request) {
	assessment, err := h.service.GetAssessment(r.Context(), principalFrom(r), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, assessment)
}

func (h *Handler) listAssessmentsHandler(w http.ResponseWriter, r *http.Request) {
	assessments, err := h.service.ListAssessments(r.Context(), principalFrom(r), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, assessments)
}

func (h *Handler) updateAssessmentHandler(w http.ResponseWriter, r *http.Request) {
	var updates types.AssessmentUpdates
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		h.writeError(w, r, types.NewValidationError("invalid request body", nil))
		return
	}
	assessment, err := h.service.UpdateAssessment(r.Context(), principalFrom(r), mux.Vars(r)["id"], &updates)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, assessment)
}

func (h *Handler) deleteAssessmentHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteAssessment(r.Context(), principalFrom(r), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Audit trail

func (h *Handler) listAuditHandler(w http.ResponseWriter, r *http.Request) {
	recs, err := h.service.ListAuditRecords(r.Context(), principalFrom(r), parseAuditFilter(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, recs)
}

func (h *Handler) listPatientAuditHandler(w http.ResponseWriter, r *http.Request) {
	recs, err := h.service.ListAuditRecordsForPatient(r.Context(), principalFrom(r), mux.Vars(r)["id"], parseAuditFilter(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, recs)
}

// Helpers

func principalFrom(r *http.Request) policy.Principal {
	return identity.PrincipalFrom(r.Context())
}

func parseAppointmentFilters(r *http.Request) *types.AppointmentFilters {
	filters := &types.AppointmentFilters{}
	q := r.URL.Query()

	filters.PatientID = q.Get("patient_id")
	filters.ProviderID = q.Get("provider_id")
	if status := q.Get("status"); status != "" {
		filters.Status = types.AppointmentStatus(status)
	}
	if fromDate := q.Get("from_date"); fromDate != "" {
		if parsed, err := time.Parse("2006-01-02", fromDate); err == nil {
			filters.FromDate = parsed
		}
	}
	if toDate := q.Get("to_date"); toDate != "" {
		if parsed, err := time.Parse("2006-01-02", toDate); err == nil {
			filters.ToDate = parsed
		}
	}
	if limit := q.Get("limit"); limit != "" {
		if parsed, err := strconv.Atoi(limit); err == nil {
			filters.Limit = parsed
		}
	}
	if offset := q.Get("offset"); offset != "" {
		if parsed, err := strconv.Atoi(offset); err == nil {
			filters.Offset = parsed
		}
	}
	return filters
}

func parseAuditFilter(r *http.Request) *types.AuditFilter {
	filter := &types.AuditFilter{}
	q := r.URL.Query()

	filter.TableName = q.Get("table")
	filter.RecordID = q.Get("record_id")
	filter.ActorID = q.Get("actor_id")
	if action := q.Get("action"); action != "" {
		filter.Action = types.AuditAction(action)
	}
	if after := q.Get("created_after"); after != "" {
		if parsed, err := time.Parse(time.RFC3339, after); err == nil {
			filter.CreatedAfter = parsed
		}
	}
	if before := q.Get("created_before"); before != "" {
		if parsed, err := time.Parse(time.RFC3339, before); err == nil {
			filter.CreatedBefore = parsed
		}
	}
	if limit := q.Get("limit"); limit != "" {
		if parsed, err := strconv.Atoi(limit); err == nil {
			filter.Limit = parsed
		}
	}
	if offset := q.Get("offset"); offset != "" {
		if parsed, err := strconv.Atoi(offset); err == nil {
			filter.Offset = parsed
		}
	}
	return filter
}

func (h *Handler) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Errorf("Failed to encode JSON response: %v", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := types.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Errorf("%s %s failed: %v", r.Method, r.URL.Path, err)
	}

	body := map[string]interface{}{
		"error": map[string]interface{}{
			"kind":    types.KindOf(err),
			"message": "internal error",
		},
	}
	var de *types.DomainError
	if errors.As(err, &de) && de.Kind != types.ErrorKindInternal {
		inner := body["error"].(map[string]interface{})
		inner["message"] = de.Message
		if len(de.Details) > 0 {
			inner["details"] = de.Details
		}
	}
	h.writeJSON(w, status, body)
}
