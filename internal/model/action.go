package model

// DTO action-протокола.

// ActionLink - одна кнопка выбора.
type ActionLink struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

// ActionLinks - блок links ответа GET.
type ActionLinks struct {
	Actions []ActionLink `json:"actions"`
}

// ActionGetResponse - ответ на GET /get_action.
type ActionGetResponse struct {
	Icon        string      `json:"icon"`
	Label       string      `json:"label"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Links       ActionLinks `json:"links"`
}

// ActionPostRequest - тело POST /post_action.
type ActionPostRequest struct {
	Account string `json:"account"`
}

// ActionPostResponse - ответ на POST /post_action.
type ActionPostResponse struct {
	Transaction string `json:"transaction"`
	Message     string `json:"message"`
}

// ActionError - тело ответа об ошибке. message требуется протоколом, error - для совместимости.
type ActionError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// ActionsRule - правило маршрутизации actions.json.
type ActionsRule struct {
	PathPattern string `json:"pathPattern"`
	APIPath     string `json:"apiPath"`
}

// ActionsManifest - ответ на GET /actions.json.
type ActionsManifest struct {
	Rules []ActionsRule `json:"rules"`
}
