package seo

import "github.com/dusk-indust/seoplan/internal/response"

var strategicSchema = response.Object(
	response.Str("avatar").Require(),
	response.ArrOf("painPoints", response.Str("probleme"), response.Str("solution")),
	response.Obj("vocabulaireSectoriel",
		response.Strs("termesMetier"),
		response.Strs("expressionsClients"),
		response.Strs("questionsFrequentes"),
	).Require(),
	response.Strs("angles"),
	response.Num("scoreRentabilite"),
)

var clusterSchema = response.Object(
	response.ArrOf("piliers",
		response.Str("titre"),
		response.Str("motCle"),
		response.Str("intention"),
		response.ArrOf("clusters",
			response.Str("titre"),
			response.Str("motCle"),
			response.Str("intention"),
			response.Num("volumeEstime"),
			response.Num("difficulte"),
		),
	).Require(),
)

var contentSchema = response.Object(
	response.ArrOf("contenus",
		response.Str("titre"),
		response.Str("motCle"),
		response.Str("typeContenu"),
		response.Str("intention"),
		response.Str("cluster"),
		response.Str("priorite").WithDefault("moyenne"),
		response.Num("longueurMots"),
	).Require(),
)

var technicalSchema = response.Object(
	response.ArrOf("checklist",
		response.Str("categorie"),
		response.Str("action"),
		response.Str("priorite").WithDefault("moyenne"),
		response.Str("impact"),
	).Require(),
	response.Strs("schemasRecommandes"),
)

var authoritySchema = response.Object(
	response.ArrOf("strategiesBacklinks",
		response.Str("tactique"),
		response.Str("description"),
		response.Strs("cibles"),
		response.Str("effort"),
		response.Str("impact"),
	).Require(),
	response.ArrOf("concurrents",
		response.Str("nom"),
		response.Str("url"),
		response.Strs("forces"),
		response.Strs("faiblesses"),
	),
	response.ArrOf("sources", response.Str("title"), response.Str("uri")),
	response.Strs("requetes"),
)

var snippetSchema = response.Object(
	response.ArrOf("snippets",
		response.Str("requete"),
		response.Str("format").WithDefault("paragraphe"),
		response.Str("reponse"),
		response.Str("contenuCible"),
	).Require(),
)

var coordinatorSchema = response.Object(
	response.Str("resume").Require(),
	response.ArrOf("priorites", response.Str("action"), response.Str("stage"), response.Str("echeance")).Require(),
	response.ArrOf("feuilleDeRoute", response.Num("mois"), response.Strs("objectifs")),
	response.Strs("kpis"),
)
