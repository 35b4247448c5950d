package view

// homepageTemplate is the shell of the homepage. The contacts region is filled separately.
const homepageTemplate = `
<section id="toolbar">
  <button class="toolbar-btn" id="add-contact-btn">Add Contact</button>
  <div id="tag-action">
    <input type="text" name="tag-input" id="tag-input" placeholder="New tag">
    <button class="toolbar-btn" id="add-tag-btn">Create Tag</button>
    <div id="tag-msg"></div>
  </div>
</section>

<section class="filters" id="contact-filters">
  <div id="tag-filter-region">{{template "tagFilter" .TagFilter}}</div>
  <div id="name-filter">
    <label for="query">Search by name:</label>
    <input type="text" name="query" id="query" placeholder="Name" value="{{.SearchQuery}}">
  </div>
</section>

<section id="contacts-container"></section>
`

const tagFilterTemplate = `
<label for="tag-filter">Filter by tag:</label>
<select id="tag-filter" name="tag-filter">
  <option value=""{{if eq .CurrentTag ""}} selected{{end}}>Any</option>
  {{- range .Options}}
  <option value="{{.Tag}}"{{if .Selected}} selected{{end}}>{{.Tag}}</option>
  {{- end}}
</select>
`

const contactCardsTemplate = `
{{- range .}}
<section class="contact-card" data-id="{{.Id}}">
  <h2>{{.FullName}}</h2>
  <div>
    <span class="card-label">Phone Number:</span>
    {{.PhoneNumber}}
  </div>
  <div>
    <span class="card-label">Email:</span>
    {{.Email}}
  </div>
  <div>
    <span class="card-label">Tags:</span>
    {{joinTags .}}
  </div>
  <div class="contact-actions">
    <button class="contact-action-btn edit-btn" data-id="{{.Id}}">Edit</button>
    <button class="contact-action-btn delete-btn" data-id="{{.Id}}"
      data-confirm="Do you want to delete {{.FullName}} ?">Delete</button>
  </div>
</section>
{{- end}}
`

const emptyContactsTemplate = `
<div id="empty">
  <h2>{{.}}</h2>
</div>
`

const contactFormTemplate = `
<form id="contact-form" method="post" action="{{.Action}}" data-id="{{.DataId}}">
  <h2 id="form-header">{{.Header}}</h2>
  <div>
    <label for="full_name">Full name:</label>
    <input type="text" name="full_name" id="full_name" value="{{.Contact.FullName}}" required>
  </div>
  <div>
    <label for="email">Email address:</label>
    <input type="email" name="email" id="email" value="{{.Contact.Email}}" required>
  </div>
  <div>
    <label for="phone_number">Telephone number:</label>
    <input type="tel" name="phone_number" id="phone_number" value="{{.Contact.PhoneNumber}}" required>
  </div>
  <fieldset>
    <legend>Add tags to contact:</legend>
    <div>
      {{- range .Tags}}
      <input type="checkbox" name="tags" value="{{.Tag}}" id="tag-{{.Tag}}"{{if .Selected}} checked{{end}}>
      <label for="tag-{{.Tag}}">{{.Tag}}</label>
      {{- end}}
    </div>
  </fieldset>
  <div id="contact-form-controls">
    <button type="submit">Submit</button>
    <button type="button" class="cancel-btn">Cancel</button>
  </div>
</form>
`
